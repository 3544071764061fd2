package http

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/campusride/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	stopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stop",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
			"distance": &graphql.Field{Type: graphql.Float},
		},
	})

	routeStopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteStop",
		Fields: graphql.Fields{
			"stop":  &graphql.Field{Type: stopType},
			"order": &graphql.Field{Type: graphql.Int},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.String},
			"name":  &graphql.Field{Type: graphql.String},
			"color": &graphql.Field{Type: graphql.String},
			"loop":  &graphql.Field{Type: graphql.Boolean},
			"stops": &graphql.Field{Type: graphql.NewList(routeStopType)},
		},
	})

	upcomingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "UpcomingStop",
		Fields: graphql.Fields{
			"stop_id": &graphql.Field{Type: graphql.String},
			"name":    &graphql.Field{Type: graphql.String},
			"eta_min": &graphql.Field{Type: graphql.Float},
		},
	})

	vehicleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Vehicle",
		Fields: graphql.Fields{
			"id":                &graphql.Field{Type: graphql.String},
			"route_id":          &graphql.Field{Type: graphql.String},
			"location":          &graphql.Field{Type: geoPointType},
			"heading":           &graphql.Field{Type: graphql.Float},
			"speed":             &graphql.Field{Type: graphql.Float},
			"next_stop_id":      &graphql.Field{Type: graphql.String},
			"next_stop_eta_min": &graphql.Field{Type: graphql.Float},
			"upcoming_stops":    &graphql.Field{Type: graphql.NewList(upcomingType)},
		},
	})

	// Journeys resolve to their JSON form, so segments keep the type discriminator.
	segmentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Segment",
		Fields: graphql.Fields{
			"type":            &graphql.Field{Type: graphql.String},
			"from_name":       &graphql.Field{Type: graphql.String},
			"to_name":         &graphql.Field{Type: graphql.String},
			"from_coords":     &graphql.Field{Type: geoPointType},
			"to_coords":       &graphql.Field{Type: geoPointType},
			"duration_min":    &graphql.Field{Type: graphql.Int},
			"distance_meters": &graphql.Field{Type: graphql.Float},
			"instruction":     &graphql.Field{Type: graphql.String},
			"route_id":        &graphql.Field{Type: graphql.String},
			"route_name":      &graphql.Field{Type: graphql.String},
			"stops_count":     &graphql.Field{Type: graphql.Int},
			"wait_time_min":   &graphql.Field{Type: graphql.Int},
		},
	})

	journeyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Journey",
		Fields: graphql.Fields{
			"id": &graphql.Field{Type: graphql.String},
			"destination": &graphql.Field{Type: graphql.NewObject(graphql.ObjectConfig{
				Name: "Destination",
				Fields: graphql.Fields{
					"id":       &graphql.Field{Type: graphql.String},
					"name":     &graphql.Field{Type: graphql.String},
					"location": &graphql.Field{Type: geoPointType},
					"address":  &graphql.Field{Type: graphql.String},
				},
			})},
			"segments":           &graphql.Field{Type: graphql.NewList(segmentType)},
			"total_duration_min": &graphql.Field{Type: graphql.Int},
			"start_time":         &graphql.Field{Type: graphql.String},
			"arrival_time":       &graphql.Field{Type: graphql.String},
			"guidance": &graphql.Field{Type: graphql.NewObject(graphql.ObjectConfig{
				Name: "Guidance",
				Fields: graphql.Fields{
					"leave_now": &graphql.Field{Type: graphql.Boolean},
					"leave_at":  &graphql.Field{Type: graphql.String},
					"message":   &graphql.Field{Type: graphql.String},
				},
			})},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"stops": &graphql.Field{
				Type:        graphql.NewList(stopType),
				Description: "List all stops",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stops.List(p.Context)
				},
			},
			"stop": &graphql.Field{
				Type:        stopType,
				Description: "Get a stop by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stops.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"stopsNearby": &graphql.Field{
				Type:        graphql.NewList(stopType),
				Description: "Find stops near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stops.FindNearby(p.Context,
						p.Args["lat"].(float64), p.Args["lon"].(float64),
						p.Args["radius"].(float64), p.Args["limit"].(int))
				},
			},
			"searchStops": &graphql.Field{
				Type:        graphql.NewList(stopType),
				Description: "Search stops by name",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Stops.Search(p.Context, p.Args["query"].(string), p.Args["limit"].(int))
				},
			},
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "List all routes with their ordered stops",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.List(p.Context)
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Get a route by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Routes.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"vehicles": &graphql.Field{
				Type:        graphql.NewList(vehicleType),
				Description: "Live vehicles, optionally on one route",
				Args: graphql.FieldConfigArgument{
					"routeId": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Fleet == nil {
						return []domain.Vehicle{}, nil
					}
					if id, ok := p.Args["routeId"].(string); ok && id != "" {
						return deps.Fleet.VehiclesByRoute(id), nil
					}
					return deps.Fleet.Vehicles(), nil
				},
			},
			"journey": &graphql.Field{
				Type:        journeyType,
				Description: "Plan a journey to coordinates or to a free-text destination",
				Args: graphql.FieldConfigArgument{
					"fromLat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"fromLon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"toLat":   &graphql.ArgumentConfig{Type: graphql.Float},
					"toLon":   &graphql.ArgumentConfig{Type: graphql.Float},
					"toName":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "Destination"},
					"query":   &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Journeys == nil {
						return nil, errors.New("journey planner not configured")
					}
					origin := domain.GeoPoint{Lat: p.Args["fromLat"].(float64), Lon: p.Args["fromLon"].(float64)}
					var (
						j   *domain.Journey
						err error
					)
					toLat, hasLat := p.Args["toLat"].(float64)
					toLon, hasLon := p.Args["toLon"].(float64)
					switch {
					case hasLat && hasLon:
						dest := domain.Destination{Name: p.Args["toName"].(string), Location: domain.GeoPoint{Lat: toLat, Lon: toLon}}
						j, err = deps.Journeys.Plan(p.Context, origin, dest, time.Now())
					case p.Args["query"] != nil:
						j, err = deps.Journeys.PlanToQuery(p.Context, origin, p.Args["query"].(string), time.Now())
					default:
						return nil, errors.New("either toLat and toLon or query is required")
					}
					if err != nil {
						return nil, err
					}
					return asJSONMap(j)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func asJSONMap(v any) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
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

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
