// Package routekit is a declarative HTTP routing, validation, and lifecycle
// engine. Routes are plain data: a method, a path pattern, a schema for the
// path parameters, query string and body, and a handler. The same schemas
// drive request validation and OpenAPI 3.1 synthesis, so the published
// document always describes what the dispatcher actually enforces.
//
// Routes are declared as a static list and compiled into an immutable table:
//
//	todo := routekit.Object(
//	    routekit.Field("title", routekit.String().MinLength(1)),
//	    routekit.Field("completed", routekit.Optional(routekit.Boolean())),
//	)
//
//	routes := []routekit.Route{
//	    routekit.Get("/todos", listTodos,
//	        routekit.WithQuery(routekit.Object(
//	            routekit.Field("limit", routekit.Optional(routekit.Integer().Minimum(1))),
//	        )),
//	        routekit.WithResponse(http.StatusOK, "All todos", routekit.Array(todo)),
//	    ),
//	    routekit.Post("/todos", createTodo,
//	        routekit.WithBody(todo),
//	        routekit.WithResponse(http.StatusCreated, "Created", todo),
//	    ),
//	}
//
// Handlers receive validated input and return a response value; the router
// owns serialization and error translation:
//
//	func createTodo(ctx context.Context, req *routekit.Request) (*routekit.Response, error) {
//	    in, err := routekit.Decode[CreateTodo](req)
//	    if err != nil {
//	        return nil, err
//	    }
//	    repo := routekit.MustLookup[Repository](req.App())
//	    t, err := repo.Create(ctx, in.Title)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return routekit.Created(t), nil
//	}
//
// A Server owns the listener and the per-epoch AppContext:
//
//	srv, err := routekit.NewServer(routekit.DefaultConfig(), routes,
//	    routekit.WithBuilder(provideRepository),
//	)
//	if err := srv.Start(ctx); err != nil { ... }
//	defer srv.Stop(ctx)
//
// Every failure is answered with the same JSON envelope:
//
//	{"error": "todo 42 not found", "code": "NOT_FOUND"}
package routekit
