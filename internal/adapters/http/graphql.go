package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/oceanclean/oceanclean/internal/core/domain"
)

// latLngFields resolves a domain.LatLng, which has no struct tags graphql-go
// could map by name.
var latLngFields = graphql.Fields{
	"lat": &graphql.Field{
		Type: graphql.Float,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return asLatLng(p.Source).Lat, nil
		},
	},
	"lng": &graphql.Field{
		Type: graphql.Float,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return asLatLng(p.Source).Lng, nil
		},
	},
}

func asLatLng(src interface{}) domain.LatLng {
	switch v := src.(type) {
	case domain.LatLng:
		return v
	case *domain.LatLng:
		if v != nil {
			return *v
		}
	}
	return domain.LatLng{}
}

// buildSchema creates the read-only GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	latLngType := graphql.NewObject(graphql.ObjectConfig{
		Name:   "LatLng",
		Fields: latLngFields,
	})

	areaType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Area",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"coordinates": &graphql.Field{Type: graphql.NewList(latLngType)},
			"createdAt":   &graphql.Field{Type: graphql.Float},
		},
	})

	mapType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Map",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"name":      &graphql.Field{Type: graphql.String},
			"areas":     &graphql.Field{Type: graphql.NewList(areaType)},
			"createdAt": &graphql.Field{Type: graphql.Float},
			"areaCount": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					switch m := p.Source.(type) {
					case domain.Map:
						return len(m.Areas), nil
					case *domain.Map:
						return len(m.Areas), nil
					}
					return 0, nil
				},
			},
		},
	})

	readingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SensorReading",
		Fields: graphql.Fields{
			"time":           &graphql.Field{Type: graphql.String},
			"day":            &graphql.Field{Type: graphql.String},
			"temperature":    &graphql.Field{Type: graphql.Float},
			"waterQuality":   &graphql.Field{Type: graphql.Float},
			"batteryLevel":   &graphql.Field{Type: graphql.Float},
			"batteryLevel2":  &graphql.Field{Type: graphql.Float},
			"batteryLevel3":  &graphql.Field{Type: graphql.Float},
			"wasteCollected": &graphql.Field{Type: graphql.Float},
			"timestamp":      &graphql.Field{Type: graphql.Float},
		},
	})

	wasteType := graphql.NewObject(graphql.ObjectConfig{
		Name: "WasteType",
		Fields: graphql.Fields{
			"name":  &graphql.Field{Type: graphql.String},
			"value": &graphql.Field{Type: graphql.Float},
		},
	})

	locateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LocateResult",
		Fields: graphql.Fields{
			"mapId":          &graphql.Field{Type: graphql.String},
			"point":          &graphql.Field{Type: latLngType},
			"inside":         &graphql.Field{Type: graphql.NewList(areaType)},
			"nearest":        &graphql.Field{Type: areaType},
			"distanceMeters": &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"maps": &graphql.Field{
				Type:        graphql.NewList(mapType),
				Description: "All maps ordered by creation time",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.List(p.Context)
				},
			},
			"map": &graphql.Field{
				Type:        mapType,
				Description: "A map by id",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Maps.Get(p.Context, p.Args["id"].(string))
				},
			},
			"locate": &graphql.Field{
				Type:        locateType,
				Description: "Areas of a map containing a point",
				Args: graphql.FieldConfigArgument{
					"mapId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.LatLng{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					return deps.Maps.Locate(p.Context, p.Args["mapId"].(string), pt)
				},
			},
			"dailyReadings": &graphql.Field{
				Type:        graphql.NewList(readingType),
				Description: "Last 24 readings",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Statistics.Daily(p.Context)
				},
			},
			"weeklyReadings": &graphql.Field{
				Type:        graphql.NewList(readingType),
				Description: "Readings per weekday, Monday first",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Statistics.Weekly(p.Context)
				},
			},
			"wasteTypes": &graphql.Field{
				Type:        graphql.NewList(wasteType),
				Description: "Collected waste breakdown",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Statistics.WasteTypes(p.Context)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})
		if result.HasErrors() {
			LoggerFromCtx(c.UserContext()).Warn("graphql query failed", "errors", result.Errors)
		}

		return c.JSON(result)
	}
}
