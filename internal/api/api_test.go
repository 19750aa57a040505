package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redistrict/internal/boundary"
	"redistrict/internal/cache"
	"redistrict/internal/logger"
	"redistrict/internal/notify"
	"redistrict/internal/session"
	"redistrict/internal/snapshot"
	"redistrict/internal/store"
)

var noon = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func square(x float64) orb.Polygon {
	return orb.Polygon{{{x, 0}, {x + 1, 0}, {x + 1, 1}, {x, 1}, {x, 0}}}
}

func baseFixture() boundary.Collection {
	return boundary.Collection{
		{Region: boundary.StrPtr("06"), Name: "Alameda", Color: "#123456", Geometry: square(0)},
		{Region: boundary.StrPtr("06"), Name: "Marin", Color: boundary.PrimaryColor, Geometry: square(2)},
		{Region: boundary.StrPtr("41"), Name: "Baker", Color: boundary.PrimaryColor, Geometry: square(4)},
	}
}

type fakeCatalog struct {
	recorded []string
	names    []string
	err      error
	limit    int
}

func (f *fakeCatalog) Record(_ context.Context, id, name string, _ time.Time, _ boundary.Collection) error {
	f.recorded = append(f.recorded, id)
	f.names = append(f.names, name)
	return f.err
}

func (f *fakeCatalog) History(_ context.Context, limit int) ([]store.Entry, error) {
	f.limit = limit
	out := []store.Entry{}
	for _, id := range f.recorded {
		out = append(out, store.Entry{ID: id})
	}
	return out, nil
}

func (f *fakeCatalog) Boundaries(_ context.Context, id string) ([]store.Row, error) {
	for _, r := range f.recorded {
		if r == id {
			return []store.Row{{Seq: 0, Name: "Alameda"}}, nil
		}
	}
	return []store.Row{}, nil
}

type fakeNotifier struct {
	events []notify.Event
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, ev notify.Event) error {
	f.events = append(f.events, ev)
	return f.err
}

type fixture struct {
	mux      *http.ServeMux
	dir      string
	catalog  *fakeCatalog
	notifier *fakeNotifier
}

func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir(), catalog: &fakeCatalog{}, notifier: &fakeNotifier{}}
	d := Deps{
		Base:      baseFixture(),
		Regions:   boundary.Regions{"06": "California", "41": "Oregon", "99": "Nowhere"},
		Snapshots: snapshot.NewManager(snapshot.NewFSStore(f.dir)),
		Sessions:  session.NewRegistry(),
		Catalog:   f.catalog,
		Notifier:  f.notifier,
		Now:       func() time.Time { return noon },
	}
	for _, o := range opts {
		o(&d)
	}
	f.mux = BuildRoutes(d)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch v := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(v))
	default:
		b, err := json.Marshal(v)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const drawnFeature = `{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[10,0],[11,0],[11,1],[10,1],[10,0]]]}}`

func TestRegionsAndSubregions(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/regions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []boundary.RegionOption{
		{Code: "All", Name: "All"},
		{Code: "06", Name: "California"},
		{Code: "41", Name: "Oregon"},
	}, decode[[]boundary.RegionOption](t, rec))

	rec = f.do(t, http.MethodGet, "/subregions?region=6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]any](t, rec)
	assert.Equal(t, "06", got["region"])
	assert.Equal(t, []any{"Alameda", "Marin"}, got["subregions"])
}

func TestBoundaries_FilterAndHighlight(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/boundaries?region=6&highlight=Marin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[boundariesResponse](t, rec)
	assert.Equal(t, "06", resp.Region)
	assert.Equal(t, "California", resp.RegionName)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, boundary.RegionZoom, resp.View.Zoom)

	fc, err := geojson.UnmarshalFeatureCollection(resp.Collection)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	for _, ft := range fc.Features {
		style := ft.Properties["style"].(map[string]any)
		if ft.Properties.MustString("NAME") == "Marin" {
			assert.Equal(t, boundary.HighlightColor, style["fillColor"])
			assert.Equal(t, float64(2), style["weight"])
		} else {
			assert.Equal(t, "#123456", style["fillColor"])
		}
	}

	rec = f.do(t, http.MethodGet, "/boundaries", nil)
	resp = decode[boundariesResponse](t, rec)
	assert.Equal(t, "All", resp.Region)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, boundary.DefaultZoom, resp.View.Zoom)

	rec = f.do(t, http.MethodGet, "/boundaries?region=77", nil)
	resp = decode[boundariesResponse](t, rec)
	assert.Equal(t, 0, resp.Count)
	assert.Equal(t, "Unknown (77)", resp.RegionName)
}

func TestLocate(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/locate?lat=0.5&lon=2.5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[locateResponse](t, rec)
	assert.Equal(t, "Marin", got.Name)
	assert.Equal(t, "06", *got.Region)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/locate?lat=0.5&lon=2.5&region=41", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/locate?lat=50&lon=50", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/locate?lat=abc&lon=1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/locate?lat=91&lon=1", nil).Code)
}

func TestSession_DrawMergeSaveAndReview(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[sessionResponse](t, rec).ID
	require.NotEmpty(t, id)

	rec = f.do(t, http.MethodPost, "/sessions/"+id+"/select", selectRequest{Region: "06", Subregion: "North"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "drawing", decode[sessionResponse](t, rec).State)

	rec = f.do(t, http.MethodPost, "/sessions/"+id+"/shapes", drawnFeature)
	require.Equal(t, http.StatusCreated, rec.Code)
	draw := decode[drawResponse](t, rec)
	assert.True(t, draw.Added)
	assert.NotEqual(t, strings.ToLower(boundary.PrimaryColor), draw.Color)

	// the map widget repeats its last event
	rec = f.do(t, http.MethodPost, "/sessions/"+id+"/shapes", drawnFeature)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, drawResponse{Added: false, Pending: 1}, decode[drawResponse](t, rec))

	rec = f.do(t, http.MethodGet, "/sessions/"+id, nil)
	st := decode[sessionResponse](t, rec)
	assert.Equal(t, "pending_review", st.State)
	assert.Equal(t, 1, st.PendingCount)
	assert.Equal(t, []string{"06"}, st.Touched)
	layer, err := geojson.UnmarshalFeatureCollection(st.Pending)
	require.NoError(t, err)
	require.Len(t, layer.Features, 1)
	assert.Equal(t, "North (Proposed)", layer.Features[0].Properties.MustString("NAME"))

	rec = f.do(t, http.MethodPost, "/sessions/"+id+"/save", saveRequest{Name: "Q1 Plan!"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saved := decode[saveResponse](t, rec)
	assert.Equal(t, saveResponse{ID: "Q1 Plan_20240101_120000.geojson", Name: "Q1 Plan", Boundaries: 3, Proposed: 1}, saved)
	assert.FileExists(t, filepath.Join(f.dir, saved.ID))

	assert.Equal(t, []string{saved.ID}, f.catalog.recorded)
	assert.Equal(t, []string{"Q1 Plan"}, f.catalog.names)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, notify.Event{ID: saved.ID, Name: "Q1 Plan", SavedAt: noon, Boundaries: 3, Proposed: 1}, f.notifier.events[0])

	rec = f.do(t, http.MethodGet, "/sessions/"+id, nil)
	st = decode[sessionResponse](t, rec)
	assert.Equal(t, "idle", st.State)
	assert.Equal(t, 0, st.PendingCount)
	assert.Equal(t, saved.ID, st.LastSaved)

	rec = f.do(t, http.MethodGet, "/snapshots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]snapshotItem](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "Q1 Plan", items[0].Name)
	require.NotNil(t, items[0].SavedAt)
	assert.True(t, noon.Equal(*items[0].SavedAt))

	rec = f.do(t, http.MethodGet, "/snapshots/"+url.PathEscape(saved.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[snapshotResponse](t, rec)
	assert.Equal(t, 3, snap.Count)
	assert.Equal(t, 1, snap.Edited, "only the proposal keeps a non-primary color")
	fc, err := geojson.UnmarshalFeatureCollection(snap.Collection)
	require.NoError(t, err)
	for _, ft := range fc.Features {
		style := ft.Properties["style"].(map[string]any)
		if strings.HasSuffix(ft.Properties.MustString("NAME"), "(Proposed)") {
			assert.Equal(t, 0.6, style["fillOpacity"])
		} else {
			assert.Equal(t, boundary.PrimaryColor, ft.Properties.MustString("color"))
			assert.Equal(t, 0.4, style["fillOpacity"])
		}
	}
}

func TestSession_Errors(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/sessions/nope", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/sessions/nope/shapes", drawnFeature).Code)

	id := decode[sessionResponse](t, f.do(t, http.MethodPost, "/sessions", nil)).ID

	rec := f.do(t, http.MethodPost, "/sessions/"+id+"/save", saveRequest{Name: "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no pending")

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/sessions/"+id+"/select", selectRequest{Region: "06", Subregion: "North"}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodPost, "/sessions/"+id+"/shapes", `{"type":"Point","coordinates":[1,2]}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/sessions/"+id+"/shapes", `not json`).Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/sessions/"+id+"/shapes", `{"type":"Polygon","coordinates":[[[10,0],[11,0],[11,1],[10,1],[10,0]]]}`).Code)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/sessions/"+id+"/save", saveRequest{Name: "!!!"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/sessions/"+id+"/save", `{"title":"x"}`).Code)

	rec = f.do(t, http.MethodPost, "/sessions/"+id+"/select", selectRequest{Region: "41"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = f.do(t, http.MethodPost, "/sessions/"+id+"/select", selectRequest{Region: "41", ConfirmDiscard: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[sessionResponse](t, rec).PendingCount)

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/sessions/"+id+"/shapes", drawnFeature).Code)
	rec = f.do(t, http.MethodDelete, "/sessions/"+id+"/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[sessionResponse](t, rec)
	assert.Equal(t, "idle", st.State)
	assert.Equal(t, 0, st.PendingCount)
	assert.Empty(t, f.catalog.recorded)
}

type brokenStore struct{ snapshot.Store }

func (brokenStore) Put(context.Context, string, []byte) error {
	return errors.New("bucket unavailable")
}

func TestSave_PersistFailureKeepsPending(t *testing.T) {
	cat := &fakeCatalog{}
	mux := BuildRoutes(Deps{
		Base:      baseFixture(),
		Regions:   boundary.Regions{"06": "California"},
		Snapshots: snapshot.NewManager(brokenStore{snapshot.NewFSStore(t.TempDir())}),
		Catalog:   cat,
		Now:       func() time.Time { return noon },
	})
	f := &fixture{mux: mux}
	id := decode[sessionResponse](t, f.do(t, http.MethodPost, "/sessions", nil)).ID
	f.do(t, http.MethodPost, "/sessions/"+id+"/select", selectRequest{Region: "06", Subregion: "North"})
	f.do(t, http.MethodPost, "/sessions/"+id+"/shapes", drawnFeature)

	rec := f.do(t, http.MethodPost, "/sessions/"+id+"/save", saveRequest{Name: "plan"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "bucket unavailable")
	assert.Empty(t, cat.recorded)

	st := decode[sessionResponse](t, f.do(t, http.MethodGet, "/sessions/"+id, nil))
	assert.Equal(t, 1, st.PendingCount)
	assert.Equal(t, "pending_review", st.State)
}

func TestSave_CatalogAndNotifyFailuresAreNotFatal(t *testing.T) {
	f := newFixture(t)
	f.catalog.err = errors.New("catalog down")
	f.notifier.err = errors.New("webhook down")
	id := decode[sessionResponse](t, f.do(t, http.MethodPost, "/sessions", nil)).ID
	f.do(t, http.MethodPost, "/sessions/"+id+"/select", selectRequest{Region: "All"})
	f.do(t, http.MethodPost, "/sessions/"+id+"/shapes", drawnFeature)

	rec := f.do(t, http.MethodPost, "/sessions/"+id+"/save", saveRequest{Name: "anywhere"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 4, decode[saveResponse](t, rec).Boundaries)
}

func TestSave_WebhookRejectionLoggedOnce(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer hook.Close()
	var logs bytes.Buffer
	prev := logger.SetDefault(logger.New(&logs, "debug", "text"))
	t.Cleanup(func() { logger.SetDefault(prev) })

	f := newFixture(t, func(d *Deps) { d.Notifier = notify.New(hook.URL, time.Second) })
	id := decode[sessionResponse](t, f.do(t, http.MethodPost, "/sessions", nil)).ID
	f.do(t, http.MethodPost, "/sessions/"+id+"/select", selectRequest{Region: "06"})
	f.do(t, http.MethodPost, "/sessions/"+id+"/shapes", drawnFeature)

	rec := f.do(t, http.MethodPost, "/sessions/"+id+"/save", saveRequest{Name: "plan"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, strings.Count(logs.String(), "notify_"), logs.String())
	assert.Contains(t, logs.String(), "webhook returned 502")
}

func TestSave_OverwriteRefreshesCachedBody(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Cache = cache.NewSnapshots(cache.NewLRU(8, time.Minute), nil, time.Minute)
	})
	save := func(region string) string {
		id := decode[sessionResponse](t, f.do(t, http.MethodPost, "/sessions", nil)).ID
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/sessions/"+id+"/select", selectRequest{Region: region, Subregion: "North"}).Code)
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/sessions/"+id+"/shapes", drawnFeature).Code)
		rec := f.do(t, http.MethodPost, "/sessions/"+id+"/save", saveRequest{Name: "Plan"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decode[saveResponse](t, rec).ID
	}

	first := save("06")
	rec := f.do(t, http.MethodGet, "/snapshots/"+url.PathEscape(first), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[snapshotResponse](t, rec).Count)

	second := save("All")
	require.Equal(t, first, second, "same name in the same second overwrites")
	rec = f.do(t, http.MethodGet, "/snapshots/"+url.PathEscape(second), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[snapshotResponse](t, rec).Count)
}

func TestSnapshots_Errors(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/snapshots/missing_20240101_120000.geojson", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/snapshots/notes.txt", nil).Code)

	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "bad_20240101_000000.geojson"), []byte("{"), 0o644))
	rec := f.do(t, http.MethodGet, "/snapshots/bad_20240101_000000.geojson", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_20240101_000000.geojson")

	rec = f.do(t, http.MethodGet, "/snapshots", nil)
	assert.Len(t, decode[[]snapshotItem](t, rec), 1)
}

func TestCatalogRoutes(t *testing.T) {
	f := newFixture(t)
	f.catalog.recorded = []string{"a_20240101_120000.geojson"}

	rec := f.do(t, http.MethodGet, "/catalog?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, f.catalog.limit)
	assert.Len(t, decode[[]store.Entry](t, rec), 1)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/catalog?limit=x", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/catalog/a_20240101_120000.geojson", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/catalog/b.geojson", nil).Code)

	off := &fixture{mux: BuildRoutes(Deps{Snapshots: snapshot.NewManager(snapshot.NewFSStore(t.TempDir()))})}
	assert.Equal(t, http.StatusNotFound, off.do(t, http.MethodGet, "/catalog", nil).Code)
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *fixture) upload(t *testing.T, path, filename, content string) *httptest.ResponseRecorder {
	body, ctype := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestUploads(t *testing.T) {
	f := newFixture(t)
	csv := "CountyName,StateFIPS,SalesRep,Product\nMarin,6,Kim,Widgets\n"

	rec := f.upload(t, "/uploads", "assign.csv", csv)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[uploadResponse](t, rec).Count)

	assert.Equal(t, http.StatusUnsupportedMediaType, f.upload(t, "/uploads", "assign.pdf", csv).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, f.upload(t, "/uploads", "assign.csv", "a,b\n1,2\n").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/uploads", "plain").Code)

	id := decode[sessionResponse](t, f.do(t, http.MethodPost, "/sessions", nil)).ID
	f.do(t, http.MethodPost, "/sessions/"+id+"/select", selectRequest{Region: "06"})
	require.Equal(t, http.StatusOK, f.upload(t, "/sessions/"+id+"/assignments", "assign.csv", csv).Code)

	rec = f.do(t, http.MethodGet, "/boundaries?session="+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[boundariesResponse](t, rec)
	assert.Equal(t, "06", resp.Region)
	fc, err := geojson.UnmarshalFeatureCollection(resp.Collection)
	require.NoError(t, err)
	for _, ft := range fc.Features {
		if ft.Properties.MustString("NAME") == "Marin" {
			assert.Equal(t, "Kim", ft.Properties.MustString("SalesRep"))
		}
	}
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/boundaries?session=nope", nil).Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusOf(boundary.ErrNotFound))
	assert.Equal(t, http.StatusConflict, statusOf(session.ErrPendingWouldBeDiscarded))
	assert.Equal(t, http.StatusInternalServerError, statusOf(&boundary.LoadError{Path: "x", Err: errors.New("bad")}))
	assert.Equal(t, http.StatusInternalServerError, statusOf(&snapshot.PersistError{ID: "x", Err: errors.New("io")}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusOf(&http.MaxBytesError{Limit: 1}))
}
