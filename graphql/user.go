package graphql

import (
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"

	"hackernews/auth"
	"hackernews/control"
	"hackernews/errs"
	"hackernews/events"
	"hackernews/model"
)

// bcrypt 只使用前 72 字节
const maxPasswordLen = 72

type authPayload struct {
	Token string
	User  *model.User
}

type votePayload struct {
	Link *model.Link
	User *model.User
}

func (r *Resolver) signup(p graphql.ResolveParams) (interface{}, error) {
	ctx := contextOf(p)
	email, _ := p.Args["email"].(string)
	password, _ := p.Args["password"].(string)
	name, _ := p.Args["name"].(string)

	if strings.TrimSpace(email) == "" || password == "" {
		return nil, errs.Validation("Email and password are required")
	}
	if len(password) > maxPasswordLen {
		return nil, errs.Validation("Password must be at most %d bytes", maxPasswordLen)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{Name: name, Email: email, Password: hash}
	if err := r.Store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, control.ErrDuplicate) {
			return nil, errs.Conflict("Email already registered: %s", control.NormalizeEmail(email))
		}
		return nil, err
	}
	token, err := r.Issuer.Sign(user.ID)
	if err != nil {
		return nil, err
	}
	return &authPayload{Token: token, User: user}, nil
}

func (r *Resolver) login(p graphql.ResolveParams) (interface{}, error) {
	ctx := contextOf(p)
	email, _ := p.Args["email"].(string)
	password, _ := p.Args["password"].(string)

	user, err := r.Store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, control.ErrNotFound) {
			return nil, errs.Authentication("Invalid email or password")
		}
		return nil, err
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, errs.Authentication("Invalid email or password")
	}
	token, err := r.Issuer.Sign(user.ID)
	if err != nil {
		return nil, err
	}
	return &authPayload{Token: token, User: user}, nil
}

func (r *Resolver) vote(p graphql.ResolveParams) (interface{}, error) {
	ctx := contextOf(p)
	user, err := r.callerUser(ctx, "vote")
	if err != nil {
		return nil, err
	}
	linkID, err := parseID(p.Args["linkId"], "link")
	if err != nil {
		return nil, err
	}
	if err := r.Store.AddVote(ctx, linkID, user.ID); err != nil {
		if errors.Is(err, control.ErrAlreadyVoted) {
			return nil, errs.Conflict("Already voted for link: %d", linkID)
		}
		return nil, mapLinkErr(err, linkID)
	}
	r.invalidateVotes(ctx, linkID)
	link, err := r.Store.GetLink(ctx, linkID)
	if err != nil {
		return nil, mapLinkErr(err, linkID)
	}
	r.publish(ctx, events.VoteCreated, linkID, user.ID)
	return &votePayload{Link: link, User: user}, nil
}

func sourceUser(p graphql.ResolveParams) (*model.User, error) {
	switch u := p.Source.(type) {
	case *model.User:
		return u, nil
	case model.User:
		return &u, nil
	}
	return nil, errors.Errorf("unexpected User source %T", p.Source)
}

func (r *Resolver) userLinks(p graphql.ResolveParams) (interface{}, error) {
	user, err := sourceUser(p)
	if err != nil {
		return nil, err
	}
	links, err := r.Store.LinksPostedBy(contextOf(p), user.ID)
	if err != nil {
		return nil, err
	}
	return linkPtrs(links), nil
}
