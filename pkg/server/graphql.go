package server

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/lukapolovic/moviesearch/pkg/api"
	"github.com/lukapolovic/moviesearch/pkg/cluster"
)

// graphQLHandler exposes the coordinator search over GraphQL as an
// alternative public surface.
type graphQLHandler struct {
	schema graphql.Schema
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

func newGraphQLHandler(coordinator *cluster.Coordinator) (*graphQLHandler, error) {
	schema, err := searchSchema(coordinator)
	if err != nil {
		return nil, err
	}
	return &graphQLHandler{schema: schema}, nil
}

func (h *graphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": []map[string]any{{"message": "invalid request body"}},
		})
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})

	// GraphQL execution errors still travel in a 200 response body.
	writeJSON(w, http.StatusOK, result)
}

// searchSchema builds the query schema: search(q, page, pageSize, debug).
func searchSchema(coordinator *cluster.Coordinator) (graphql.Schema, error) {
	resultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchResult",
		Fields: graphql.Fields{
			"docId":    &graphql.Field{Type: graphql.Int},
			"title":    &graphql.Field{Type: graphql.String},
			"director": &graphql.Field{Type: graphql.String},
			"cast":     &graphql.Field{Type: graphql.NewList(graphql.String)},
			"year":     &graphql.Field{Type: graphql.String},
			"rating":   &graphql.Field{Type: graphql.String},
			"score":    &graphql.Field{Type: graphql.Float},
		},
	})

	responseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchResponse",
		Fields: graphql.Fields{
			"status":    &graphql.Field{Type: graphql.String},
			"query":     &graphql.Field{Type: graphql.String},
			"totalHits": &graphql.Field{Type: graphql.Int},
			"page":      &graphql.Field{Type: graphql.Int},
			"pageSize":  &graphql.Field{Type: graphql.Int},
			"results":   &graphql.Field{Type: graphql.NewList(resultType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"search": &graphql.Field{
				Type: responseType,
				Args: graphql.FieldConfigArgument{
					"q":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"page":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"pageSize": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: api.DefaultPageSize},
					"debug":    &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					q, _ := p.Args["q"].(string)
					page, _ := p.Args["page"].(int)
					pageSize, _ := p.Args["pageSize"].(int)
					debug, _ := p.Args["debug"].(bool)

					if len(q) < api.QueryMinLen || len(q) > api.QueryMaxLen {
						return nil, api.ErrInvalidQuery(map[string]any{"q": q})
					}
					if page < 1 {
						return nil, api.ErrInvalidQuery(map[string]any{"page": page})
					}
					if pageSize < api.PageSizeMin || pageSize > api.PageSizeMax {
						return nil, api.ErrInvalidQuery(map[string]any{"pageSize": pageSize})
					}

					status, data, _ := coordinator.Search(p.Context, q, page, pageSize, debug, newRequestID())

					results := make([]map[string]any, 0, len(data.Results))
					for _, item := range data.Results {
						row := map[string]any{
							"docId":    item.DocID,
							"title":    item.Title,
							"director": item.Director,
							"cast":     item.Cast,
							"year":     item.Year,
							"rating":   item.Rating,
						}
						if item.Score != nil {
							row["score"] = *item.Score
						}
						results = append(results, row)
					}

					return map[string]any{
						"status":    status,
						"query":     data.Query,
						"totalHits": data.TotalHits,
						"page":      data.Page,
						"pageSize":  data.PageSize,
						"results":   results,
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}
