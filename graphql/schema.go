package graphql

import (
	"github.com/graphql-go/graphql"
)

// 链接类型与用户类型互相引用，字段用 FieldsThunk 延迟构造
func (r *Resolver) newUserType(linkType func() *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{
					Type: graphql.NewNonNull(graphql.Int),
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						u, err := sourceUser(p)
						if err != nil {
							return nil, err
						}
						return int(u.ID), nil
					},
				},
				"name": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						u, err := sourceUser(p)
						if err != nil {
							return nil, err
						}
						return u.Name, nil
					},
				},
				"email": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						u, err := sourceUser(p)
						if err != nil {
							return nil, err
						}
						return u.Email, nil
					},
				},
				"links": &graphql.Field{
					Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(linkType()))),
					Resolve: r.resolve("User.links", r.userLinks),
				},
			}
		}),
	})
}

func (r *Resolver) newLinkType(userType func() *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Link",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id": &graphql.Field{
					Type: graphql.NewNonNull(graphql.Int),
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						l, err := sourceLink(p)
						if err != nil {
							return nil, err
						}
						return int(l.ID), nil
					},
				},
				"description": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						l, err := sourceLink(p)
						if err != nil {
							return nil, err
						}
						return l.Description, nil
					},
				},
				"url": &graphql.Field{
					Type: graphql.NewNonNull(graphql.String),
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						l, err := sourceLink(p)
						if err != nil {
							return nil, err
						}
						return l.URL, nil
					},
				},
				"createdAt": &graphql.Field{
					Type: graphql.NewNonNull(graphql.DateTime),
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						l, err := sourceLink(p)
						if err != nil {
							return nil, err
						}
						return l.CreatedAt, nil
					},
				},
				"postedBy": &graphql.Field{
					Type:    userType(),
					Resolve: r.resolve("Link.postedBy", r.linkPostedBy),
				},
				"voters": &graphql.Field{
					Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(userType()))),
					Resolve: r.resolve("Link.voters", r.linkVoters),
				},
				"voteCount": &graphql.Field{
					Type:    graphql.NewNonNull(graphql.Int),
					Resolve: r.resolve("Link.voteCount", r.linkVoteCount),
				},
			}
		}),
	})
}

// NewGraphQLSchema 创建 schema，解析函数闭包持有 r
func NewGraphQLSchema(r *Resolver) (graphql.Schema, error) {
	var userType, linkType *graphql.Object
	userType = r.newUserType(func() *graphql.Object { return linkType })
	linkType = r.newLinkType(func() *graphql.Object { return userType })

	authPayloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthPayload",
		Fields: graphql.Fields{
			"token": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*authPayload).Token, nil
				},
			},
			"user": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*authPayload).User, nil
				},
			},
		},
	})

	voteType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Vote",
		Fields: graphql.Fields{
			"link": &graphql.Field{
				Type: graphql.NewNonNull(linkType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*votePayload).Link, nil
				},
			},
			"user": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*votePayload).User, nil
				},
			},
		},
	})

	idArg := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}
	requiredString := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"info": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(graphql.ResolveParams) (interface{}, error) {
					return "This is the API of a Hackernews Clone", nil
				},
			},
			"feed": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(linkType))),
				Args: graphql.FieldConfigArgument{
					"filter": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.resolve("Query.feed", r.feed),
			},
			"link": &graphql.Field{
				Type:    graphql.NewNonNull(linkType),
				Args:    graphql.FieldConfigArgument{"id": idArg},
				Resolve: r.resolve("Query.link", r.link),
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"post": &graphql.Field{
				Type: graphql.NewNonNull(linkType),
				Args: graphql.FieldConfigArgument{
					"description": requiredString,
					"url":         requiredString,
				},
				Resolve: r.resolve("Mutation.post", r.post),
			},
			"updateLink": &graphql.Field{
				Type: graphql.NewNonNull(linkType),
				Args: graphql.FieldConfigArgument{
					"id":          idArg,
					"description": &graphql.ArgumentConfig{Type: graphql.String},
					"url":         &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.resolve("Mutation.updateLink", r.updateLink),
			},
			"deleteLink": &graphql.Field{
				Type:    graphql.NewNonNull(linkType),
				Args:    graphql.FieldConfigArgument{"id": idArg},
				Resolve: r.resolve("Mutation.deleteLink", r.deleteLink),
			},
			"signup": &graphql.Field{
				Type: graphql.NewNonNull(authPayloadType),
				Args: graphql.FieldConfigArgument{
					"email":    requiredString,
					"password": requiredString,
					"name":     requiredString,
				},
				Resolve: r.resolve("Mutation.signup", r.signup),
			},
			"login": &graphql.Field{
				Type: graphql.NewNonNull(authPayloadType),
				Args: graphql.FieldConfigArgument{
					"email":    requiredString,
					"password": requiredString,
				},
				Resolve: r.resolve("Mutation.login", r.login),
			},
			"vote": &graphql.Field{
				Type:    graphql.NewNonNull(voteType),
				Args:    graphql.FieldConfigArgument{"linkId": idArg},
				Resolve: r.resolve("Mutation.vote", r.vote),
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}
