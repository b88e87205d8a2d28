package graphql

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"hackernews/auth"
	"hackernews/control"
	"hackernews/errs"
	"hackernews/events"
	"hackernews/model"
)

// Observer 记录每次字段解析的结果与耗时
type Observer interface {
	ObserveResolve(field string, code errs.Code, d time.Duration)
}

// Resolver 持有解析函数所需的依赖，每个进程一份
type Resolver struct {
	Store    control.Store
	Votes    control.VoteCounter
	Events   events.Publisher
	Issuer   *auth.Issuer
	Observer Observer // 可为空
}

// resolve 包装解析函数：非业务错误转为 INTERNAL，记录日志与指标
func (r *Resolver) resolve(field string, fn graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		start := time.Now()
		res, err := fn(p)
		var code errs.Code
		if err != nil {
			var e *errs.Error
			if !errors.As(err, &e) {
				e = errs.Internal(err)
			}
			code = e.Code
			entry := log.WithFields(log.Fields{"field": field, "code": code})
			if code == errs.CodeInternal {
				entry.WithError(err).Error("resolve failed")
			} else {
				entry.Debug(e.Message)
			}
			res, err = nil, e
		}
		if r.Observer != nil {
			r.Observer.ObserveResolve(field, code, time.Since(start))
		}
		return res, err
	}
}

func contextOf(p graphql.ResolveParams) context.Context {
	if p.Context == nil {
		return context.Background()
	}
	return p.Context
}

// caller 需要登录的操作。未携带 token 时返回 "Cannot <action> without logging in"，token 无效时返回校验错误。
func (r *Resolver) caller(ctx context.Context, action string) (uint, error) {
	id, err := auth.UserID(ctx)
	if err != nil {
		if errs.Is(err, errs.CodeUnauthenticated) {
			return 0, errs.Authentication("Cannot %s without logging in", action)
		}
		return 0, err
	}
	return id, nil
}

// callerUser 调用者必须是已存在的用户
func (r *Resolver) callerUser(ctx context.Context, action string) (*model.User, error) {
	id, err := r.caller(ctx, action)
	if err != nil {
		return nil, err
	}
	user, err := r.Store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, control.ErrNotFound) {
			return nil, errs.Authentication("Unknown user: %d", id)
		}
		return nil, err
	}
	return user, nil
}

// parseID 非整数返回 BAD_USER_INPUT；非正整数不可能存在，返回 NOT_FOUND
func parseID(arg interface{}, kind string) (uint, error) {
	raw := fmt.Sprint(arg)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errs.Validation("Invalid %s id: %q", kind, raw)
	}
	if n <= 0 {
		return 0, errs.NotFound("No %s found for id: %s", kind, raw)
	}
	return uint(n), nil
}

func optionalString(args map[string]interface{}, name string) *string {
	v, ok := args[name].(string)
	if !ok {
		return nil
	}
	return &v
}

func (r *Resolver) publish(ctx context.Context, typ string, linkID, userID uint) {
	e := events.Event{Type: typ, LinkID: linkID, UserID: userID, At: time.Now()}
	if err := r.Events.Publish(ctx, e); err != nil {
		log.WithError(err).WithField("link", linkID).Warnf("publish %s", typ)
	}
}

func (r *Resolver) invalidateVotes(ctx context.Context, linkID uint) {
	if err := r.Votes.Invalidate(ctx, linkID); err != nil {
		log.WithError(err).Warn("invalidate vote count")
	}
}

func linkPtrs(links []model.Link) []*model.Link {
	out := make([]*model.Link, len(links))
	for i := range links {
		out[i] = &links[i]
	}
	return out
}

func userPtrs(users []model.User) []*model.User {
	out := make([]*model.User, len(users))
	for i := range users {
		out[i] = &users[i]
	}
	return out
}
