package ctx

import (
	"github.com/valyala/fasthttp"

	dbpkg "keyplane/internal/db"
	"keyplane/internal/keys"
)

const (
	ActorKey  = "actor"
	APIKeyKey = "apiKey"
)

func SetActor(ctx *fasthttp.RequestCtx, actor keys.Actor) {
	ctx.SetUserValue(ActorKey, actor)
}

func ActorFromCtx(ctx *fasthttp.RequestCtx) (keys.Actor, bool) {
	v := ctx.UserValue(ActorKey)
	if v == nil {
		return keys.Actor{}, false
	}
	a, ok := v.(keys.Actor)
	return a, ok
}

func SetAPIKey(ctx *fasthttp.RequestCtx, apiKey *dbpkg.APIKey) {
	ctx.SetUserValue(APIKeyKey, apiKey)
}

func APIKeyFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.APIKey, bool) {
	v := ctx.UserValue(APIKeyKey)
	if v == nil {
		return nil, false
	}
	ak, ok := v.(*dbpkg.APIKey)
	return ak, ok && ak != nil
}
