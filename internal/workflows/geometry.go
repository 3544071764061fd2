package workflows

import (
	"time"

	"github.com/paulmach/orb"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// TaskQueue is the default queue served by the geosync worker.
const TaskQueue = "route-geometry"

// GeometryInput selects the routes to refresh. Empty RouteIDs means all routes.
type GeometryInput struct {
	RouteIDs []string
}

// GeometryResult reports which routes got a new shape.
type GeometryResult struct {
	Updated []string
	Failed  map[string]string
}

// RouteGeometryWorkflow fetches a road-following shape for each route and
// stores it. A route whose directions or save step fails after retries is
// recorded in the result and the run moves on to the next route.
func RouteGeometryWorkflow(ctx workflow.Context, input GeometryInput) (*GeometryResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting route geometry workflow", "routes", len(input.RouteIDs))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var a *GeometryActivities

	var routes []RouteWaypoints
	if err := workflow.ExecuteActivity(ctx, a.ListRouteWaypoints, input.RouteIDs).Get(ctx, &routes); err != nil {
		return nil, err
	}

	result := &GeometryResult{Updated: []string{}, Failed: map[string]string{}}
	for _, rw := range routes {
		var shape orb.LineString
		if err := workflow.ExecuteActivity(ctx, a.FetchRouteShape, rw).Get(ctx, &shape); err != nil {
			logger.Warn("shape fetch failed", "route", rw.RouteID, "error", err)
			result.Failed[rw.RouteID] = err.Error()
			continue
		}
		if err := workflow.ExecuteActivity(ctx, a.SaveRouteShape, rw.RouteID, shape).Get(ctx, nil); err != nil {
			logger.Warn("shape save failed", "route", rw.RouteID, "error", err)
			result.Failed[rw.RouteID] = err.Error()
			continue
		}
		result.Updated = append(result.Updated, rw.RouteID)
	}

	logger.Info("Route geometry workflow finished", "updated", len(result.Updated), "failed", len(result.Failed))
	return result, nil
}
