package graphql

import (
	"github.com/graphql-go/graphql"
	"github.com/pkg/errors"

	"hackernews/control"
	"hackernews/errs"
	"hackernews/events"
	"hackernews/model"
)

func linkNotFound(id uint) error {
	return errs.NotFound("No link found for id: %d", id)
}

// mapLinkErr 存储层的 ErrNotFound 转为 NOT_FOUND
func mapLinkErr(err error, id uint) error {
	if errors.Is(err, control.ErrNotFound) {
		return linkNotFound(id)
	}
	return err
}

func (r *Resolver) feed(p graphql.ResolveParams) (interface{}, error) {
	filter, _ := p.Args["filter"].(string)
	links, err := r.Store.FeedLinks(contextOf(p), filter)
	if err != nil {
		return nil, err
	}
	return linkPtrs(links), nil
}

func (r *Resolver) link(p graphql.ResolveParams) (interface{}, error) {
	id, err := parseID(p.Args["id"], "link")
	if err != nil {
		return nil, err
	}
	link, err := r.Store.GetLink(contextOf(p), id)
	if err != nil {
		return nil, mapLinkErr(err, id)
	}
	return link, nil
}

func (r *Resolver) post(p graphql.ResolveParams) (interface{}, error) {
	ctx := contextOf(p)
	user, err := r.callerUser(ctx, "post")
	if err != nil {
		return nil, err
	}
	description, _ := p.Args["description"].(string)
	url, _ := p.Args["url"].(string)

	link := &model.Link{
		Description: description,
		URL:         url,
		PostedByID:  &user.ID,
	}
	if err := r.Store.CreateLink(ctx, link); err != nil {
		return nil, err
	}
	r.publish(ctx, events.LinkCreated, link.ID, user.ID)
	return link, nil
}

func (r *Resolver) updateLink(p graphql.ResolveParams) (interface{}, error) {
	ctx := contextOf(p)
	id, err := parseID(p.Args["id"], "link")
	if err != nil {
		return nil, err
	}
	patch := model.LinkPatch{
		Description: optionalString(p.Args, "description"),
		URL:         optionalString(p.Args, "url"),
	}
	link, err := r.Store.UpdateLink(ctx, id, patch)
	if err != nil {
		return nil, mapLinkErr(err, id)
	}
	// 更新不要求登录，有身份时记录在事件中
	userID, _ := r.caller(ctx, "update")
	r.publish(ctx, events.LinkUpdated, link.ID, userID)
	return link, nil
}

func (r *Resolver) deleteLink(p graphql.ResolveParams) (interface{}, error) {
	ctx := contextOf(p)
	userID, err := r.caller(ctx, "delete")
	if err != nil {
		return nil, err
	}
	id, err := parseID(p.Args["id"], "link")
	if err != nil {
		return nil, err
	}
	link, err := r.Store.GetLink(ctx, id)
	if err != nil {
		return nil, mapLinkErr(err, id)
	}
	if !link.IsPostedBy(userID) {
		return nil, errs.Authorization("Not authorized to delete this link")
	}
	deleted, err := r.Store.DeleteLink(ctx, id)
	if err != nil {
		return nil, mapLinkErr(err, id)
	}
	r.invalidateVotes(ctx, id)
	r.publish(ctx, events.LinkDeleted, id, userID)
	return deleted, nil
}

func sourceLink(p graphql.ResolveParams) (*model.Link, error) {
	switch l := p.Source.(type) {
	case *model.Link:
		return l, nil
	case model.Link:
		return &l, nil
	}
	return nil, errors.Errorf("unexpected Link source %T", p.Source)
}

func (r *Resolver) linkPostedBy(p graphql.ResolveParams) (interface{}, error) {
	link, err := sourceLink(p)
	if err != nil {
		return nil, err
	}
	if link.PostedByID == nil {
		return nil, nil
	}
	user, err := r.Store.GetUser(contextOf(p), *link.PostedByID)
	if err != nil {
		if errors.Is(err, control.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *Resolver) linkVoters(p graphql.ResolveParams) (interface{}, error) {
	link, err := sourceLink(p)
	if err != nil {
		return nil, err
	}
	users, err := r.Store.Voters(contextOf(p), link.ID)
	if err != nil {
		return nil, err
	}
	return userPtrs(users), nil
}

func (r *Resolver) linkVoteCount(p graphql.ResolveParams) (interface{}, error) {
	link, err := sourceLink(p)
	if err != nil {
		return nil, err
	}
	return r.Votes.VoteCount(contextOf(p), link.ID)
}
