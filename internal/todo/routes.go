package todo

import (
	"context"
	"net/http"

	"github.com/bjaus/routekit"
)

// Schema returns the schema of a stored todo.
func Schema() *routekit.Schema {
	return routekit.Object(
		routekit.Field("id", routekit.String().Format("uuid")),
		routekit.Field("title", routekit.String()),
		routekit.Field("completed", routekit.Boolean()),
		routekit.Field("createdAt", routekit.String().Format("date-time")),
		routekit.Field("updatedAt", routekit.String().Format("date-time")),
	)
}

func titleSchema() *routekit.Schema {
	return routekit.String().MinLength(1).MaxLength(200)
}

type listQuery struct {
	Completed *bool `json:"completed"`
	Limit     int   `json:"limit"`
}

type idParams struct {
	TodoID string `json:"todoId"`
}

type createBody struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type updateBody struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// Routes returns the todo route table, rooted at /todos.
func Routes() []routekit.Route {
	params := routekit.Object(
		routekit.Field("todoId", routekit.String().Describe("Todo identifier")),
	)
	errResp := routekit.ErrorEnvelopeSchema()

	return routekit.Group("/todos", []routekit.Route{
		routekit.Get("", list,
			routekit.WithSummary("List todos"),
			routekit.WithQuery(routekit.Object(
				routekit.Field("completed", routekit.Optional(routekit.Boolean()).Describe("Filter by completion")),
				routekit.Field("limit", routekit.Optional(routekit.Integer().Minimum(1).Maximum(100)).Describe("Maximum items returned")),
			)),
			routekit.WithResponse(http.StatusOK, "Todos in creation order", routekit.Array(Schema())),
			routekit.WithResponse(http.StatusBadRequest, "Invalid query", errResp),
		),
		routekit.Post("", create,
			routekit.WithSummary("Create a todo"),
			routekit.WithBody(routekit.Object(
				routekit.Field("title", titleSchema()),
				routekit.Field("completed", routekit.Optional(routekit.Boolean()).Default(false)),
			)),
			routekit.WithResponse(http.StatusCreated, "Created todo", Schema()),
			routekit.WithResponse(http.StatusBadRequest, "Invalid body", errResp),
			routekit.WithResponse(http.StatusConflict, "Title already exists", errResp),
		),
		routekit.Get("/{todoId}", get,
			routekit.WithSummary("Get a todo"),
			routekit.WithParams(params),
			routekit.WithResponse(http.StatusOK, "The todo", Schema()),
			routekit.WithResponse(http.StatusNotFound, "Unknown todo", errResp),
		),
		routekit.Put("/{todoId}", update,
			routekit.WithSummary("Update a todo"),
			routekit.WithParams(params),
			routekit.WithBody(routekit.Object(
				routekit.Field("title", routekit.Optional(titleSchema())),
				routekit.Field("completed", routekit.Optional(routekit.Boolean())),
			)),
			routekit.WithResponse(http.StatusOK, "Updated todo", Schema()),
			routekit.WithResponse(http.StatusNotFound, "Unknown todo", errResp),
			routekit.WithResponse(http.StatusConflict, "Title already exists", errResp),
		),
		routekit.Delete("/{todoId}", remove,
			routekit.WithSummary("Delete a todo"),
			routekit.WithParams(params),
			routekit.WithResponse(http.StatusNoContent, "Deleted", nil),
			routekit.WithResponse(http.StatusNotFound, "Unknown todo", errResp),
		),
	}, "todos")
}

func repository(req *routekit.Request) Repository {
	return routekit.MustLookup[Repository](req.App())
}

func list(ctx context.Context, req *routekit.Request) (*routekit.Response, error) {
	q, err := routekit.DecodeQuery[listQuery](req)
	if err != nil {
		return nil, err
	}
	items, err := repository(req).List(ctx, Filter{Completed: q.Completed, Limit: q.Limit})
	if err != nil {
		return nil, err
	}
	return routekit.OK(items), nil
}

func create(ctx context.Context, req *routekit.Request) (*routekit.Response, error) {
	in, err := routekit.Decode[createBody](req)
	if err != nil {
		return nil, err
	}
	t, err := repository(req).Create(ctx, in.Title, in.Completed)
	if err != nil {
		return nil, err
	}
	req.Logger().Info("todo created", "id", t.ID)
	return routekit.Created(t).SetHeader("Location", "/todos/"+t.ID), nil
}

func get(ctx context.Context, req *routekit.Request) (*routekit.Response, error) {
	p, err := routekit.DecodeParams[idParams](req)
	if err != nil {
		return nil, err
	}
	t, err := repository(req).Get(ctx, p.TodoID)
	if err != nil {
		return nil, err
	}
	return routekit.OK(t), nil
}

func update(ctx context.Context, req *routekit.Request) (*routekit.Response, error) {
	p, err := routekit.DecodeParams[idParams](req)
	if err != nil {
		return nil, err
	}
	in, err := routekit.Decode[updateBody](req)
	if err != nil {
		return nil, err
	}
	t, err := repository(req).Update(ctx, p.TodoID, Patch{Title: in.Title, Completed: in.Completed})
	if err != nil {
		return nil, err
	}
	return routekit.OK(t), nil
}

func remove(ctx context.Context, req *routekit.Request) (*routekit.Response, error) {
	p, err := routekit.DecodeParams[idParams](req)
	if err != nil {
		return nil, err
	}
	if err := repository(req).Delete(ctx, p.TodoID); err != nil {
		return nil, err
	}
	return routekit.NoContent(), nil
}
