package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/paulmach/orb"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/samirrijal/campusride/internal/core/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestStopRepo_FindNearby(t *testing.T) {
	mock := newMock(t)
	repo := NewStopRepo(mock)

	mock.ExpectQuery(`SELECT id, name, ST_Y\(location::geometry\) AS lat, ST_X\(location::geometry\) AS lon,\s+ST_Distance`).
		WithArgs(35.9105, -79.0478, 400.0, 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "lat", "lon", "distance"}).
			AddRow("student-union", "Student Union", 35.9105, -79.0478, 0.0).
			AddRow("old-well", "Old Well", 35.9121, -79.0512, 355.2))

	stops, err := repo.FindNearby(context.Background(), 35.9105, -79.0478, 400, 5)
	if err != nil {
		t.Fatalf("find nearby: %v", err)
	}
	if len(stops) != 2 || stops[1].Distance == nil || *stops[1].Distance != 355.2 {
		t.Fatalf("unexpected stops: %+v", stops)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStopRepo_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewStopRepo(mock)

	mock.ExpectQuery(`FROM stops WHERE id = \$1`).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStopRepo_SearchEmptyResult(t *testing.T) {
	mock := newMock(t)
	repo := NewStopRepo(mock)

	mock.ExpectQuery(`WHERE name ILIKE`).WithArgs("zzz", 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "lat", "lon"}))

	stops, err := repo.Search(context.Background(), "zzz", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if stops == nil || len(stops) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", stops)
	}
}

func TestStopRepo_UpsertStops(t *testing.T) {
	mock := newMock(t)
	repo := NewStopRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO stops`).WithArgs("old-well", "Old Well", -79.0512, 35.9121).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO stops`).WithArgs("kenan-stadium", "Kenan Stadium", -79.0478, 35.9069).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.UpsertStops(context.Background(), []domain.Stop{
		{ID: "old-well", Name: "Old Well", Location: domain.GeoPoint{Lat: 35.9121, Lon: -79.0512}},
		{ID: "kenan-stadium", Name: "Kenan Stadium", Location: domain.GeoPoint{Lat: 35.9069, Lon: -79.0478}},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRouteRepo_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewRouteRepo(mock)

	mock.ExpectQuery(`FROM routes r\s+LEFT JOIN route_shapes sh ON sh.route_id = r.id WHERE r.id = \$1`).
		WithArgs("RU").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "color", "is_loop", "shape"}).
			AddRow("RU", "RU Route", "#4B9CD3", true,
				`{"type":"LineString","coordinates":[[-79.0478,35.9105],[-79.0478,35.9069]]}`))
	mock.ExpectQuery(`FROM route_stops rs`).
		WithArgs([]string{"RU"}).
		WillReturnRows(pgxmock.NewRows([]string{"route_id", "stop_order", "id", "name", "lat", "lon"}).
			AddRow("RU", 1, "student-union", "Student Union", 35.9105, -79.0478).
			AddRow("RU", 2, "kenan-stadium", "Kenan Stadium", 35.9069, -79.0478))

	rt, err := repo.GetByID(context.Background(), "RU")
	if err != nil {
		t.Fatalf("get route: %v", err)
	}
	if !rt.Loop || len(rt.Stops) != 2 || rt.Stops[1].Stop.ID != "kenan-stadium" {
		t.Fatalf("unexpected route: %+v", rt)
	}
	if len(rt.Shape) != 2 || rt.Shape[1] != (orb.Point{-79.0478, 35.9069}) {
		t.Fatalf("unexpected shape: %v", rt.Shape)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRouteRepo_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewRouteRepo(mock)

	mock.ExpectQuery(`WHERE r.id = \$1`).WithArgs("XX").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "color", "is_loop", "shape"}))

	if _, err := repo.GetByID(context.Background(), "XX"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRouteRepo_SaveShape_UnknownRoute(t *testing.T) {
	mock := newMock(t)
	repo := NewRouteRepo(mock)

	mock.ExpectExec(`INSERT INTO route_shapes`).
		WithArgs("ghost", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := repo.SaveShape(context.Background(), "ghost", orb.LineString{{-79.0478, 35.9105}, {-79.0478, 35.9069}})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRouteRepo_UpsertRoutes_RollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewRouteRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO routes`).WithArgs("U", "U Route", "#13294B", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM route_stops`).WithArgs("U").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO route_stops`).WithArgs("U", "student-union", 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO route_stops`).WithArgs("U", "nowhere", 2).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	err := repo.UpsertRoutes(context.Background(), []domain.Route{{
		ID: "U", Name: "U Route", Color: "#13294B", Loop: true,
		Stops: []domain.RouteStop{
			{Stop: domain.Stop{ID: "student-union"}, Order: 1},
			{Stop: domain.Stop{ID: "nowhere"}, Order: 2},
		},
	}})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCatalogWriter_StopsThenRoutes(t *testing.T) {
	mock := newMock(t)
	w := NewCatalogWriter(mock)
	stop := domain.Stop{ID: "old-well", Name: "Old Well", Location: domain.GeoPoint{Lat: 35.9121, Lon: -79.0512}}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO stops`).WithArgs("old-well", "Old Well", -79.0512, 35.9121).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO routes`).WithArgs("OW", "Old Well Shuttle", "", false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM route_stops`).WithArgs("OW").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO route_stops`).WithArgs("OW", "old-well", 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	ctx := context.Background()
	if err := w.UpsertStops(ctx, []domain.Stop{stop}); err != nil {
		t.Fatalf("upsert stops: %v", err)
	}
	err := w.UpsertRoutes(ctx, []domain.Route{{
		ID: "OW", Name: "Old Well Shuttle",
		Stops: []domain.RouteStop{{Stop: stop, Order: 1}},
	}})
	if err != nil {
		t.Fatalf("upsert routes: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
