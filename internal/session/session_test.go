package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redistrict/internal/boundary"
	"redistrict/internal/snapshot"
	"redistrict/internal/upload"
)

type recordingSaver struct {
	saved []boundary.Collection
	err   error
}

func (r *recordingSaver) Save(_ context.Context, c boundary.Collection, name string, at time.Time) (snapshot.ID, error) {
	if r.err != nil {
		return "", r.err
	}
	r.saved = append(r.saved, c)
	clean, err := snapshot.SanitizeName(name)
	if err != nil {
		return "", err
	}
	return snapshot.FileName(clean, at), nil
}

func square(x float64) orb.Polygon {
	return orb.Polygon{{{x, 0}, {x + 1, 0}, {x + 1, 1}, {x, 1}, {x, 0}}}
}

func fixture() boundary.Collection {
	return boundary.Collection{
		{Region: boundary.StrPtr("06"), Name: "Alameda", Color: "#123456", Geometry: square(0)},
		{Region: boundary.StrPtr("06"), Name: "Marin", Color: boundary.PrimaryColor, Geometry: square(2)},
		{Region: boundary.StrPtr("41"), Name: "Baker", Color: boundary.PrimaryColor, Geometry: square(4)},
	}
}

func names(c boundary.Collection) []string {
	out := make([]string, 0, len(c))
	for _, b := range c {
		out = append(out, b.Name)
	}
	return out
}

func fixedColor() string { return "#00ff00" }

var at = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestSession_StateTransitions(t *testing.T) {
	s := New().WithColors(fixedColor)
	assert.Equal(t, Idle, s.State())

	require.NoError(t, s.Select("6", "North", false))
	assert.Equal(t, Drawing, s.State())
	assert.Equal(t, "06", s.Status().Region)

	p, added, err := s.Draw(square(10))
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "#00ff00", p.Color)
	assert.Equal(t, PendingReview, s.State())

	saver := &recordingSaver{}
	id, merged, err := s.Save(context.Background(), saver, fixture(), "Q1 plan", at)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ID("Q1 plan_20240101_120000.geojson"), id)
	assert.Equal(t, Idle, s.State(), "a successful save returns straight to idle")
	assert.ElementsMatch(t, []string{"Alameda", "Marin", "North (Proposed)"}, names(merged))
	for _, b := range merged {
		if !b.Proposed() {
			assert.Equal(t, boundary.PrimaryColor, b.Color, b.Name)
		}
	}

	st := s.Status()
	assert.Empty(t, st.Pending)
	assert.Equal(t, []string{"06"}, st.Touched)
	assert.Equal(t, string(id), st.LastSaved)

	s.Abandon()
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, []string{"06"}, s.Status().Touched, "abandon keeps committed regions")
}

func TestSession_SelectWithPendingNeedsConfirmation(t *testing.T) {
	s := New().WithColors(fixedColor)
	require.NoError(t, s.Select("06", "North", false))
	_, _, err := s.Draw(square(10))
	require.NoError(t, err)

	// same region, different subregion keeps the pending shape
	require.NoError(t, s.Select("06", "South", false))
	assert.Len(t, s.Status().Pending, 1)
	assert.Equal(t, PendingReview, s.State())

	err = s.Select("41", "East", false)
	assert.ErrorIs(t, err, ErrPendingWouldBeDiscarded)
	assert.Equal(t, "06", s.Status().Region)
	assert.Len(t, s.Status().Pending, 1)

	require.NoError(t, s.Select("41", "East", true))
	st := s.Status()
	assert.Equal(t, "41", st.Region)
	assert.Empty(t, st.Pending)
	assert.Empty(t, st.Touched)
	assert.Equal(t, Drawing, s.State())
}

func TestSession_DrawRepeatAndReject(t *testing.T) {
	s := New().WithColors(fixedColor)
	require.NoError(t, s.Select("06", "North", false))

	_, added, err := s.Draw(square(10))
	require.NoError(t, err)
	require.True(t, added)

	_, added, err = s.Draw(square(10))
	require.NoError(t, err)
	assert.False(t, added, "repeat of the last shape is ignored")

	_, added, err = s.Draw(square(20))
	require.NoError(t, err)
	assert.True(t, added)

	_, _, err = s.Draw(orb.Point{1, 1})
	assert.ErrorIs(t, err, boundary.ErrUnsupportedGeometry)
	_, _, err = s.Draw(orb.LineString{{0, 0}, {1, 1}})
	assert.ErrorIs(t, err, boundary.ErrUnsupportedGeometry)

	assert.Len(t, s.Status().Pending, 2)
}

func TestSession_RepeatTrackingResetsPerBatchAndRegion(t *testing.T) {
	s := New().WithColors(fixedColor)
	saver := &recordingSaver{}
	require.NoError(t, s.Select("06", "North", false))
	_, added, err := s.Draw(square(10))
	require.NoError(t, err)
	require.True(t, added)
	_, _, err = s.Save(context.Background(), saver, fixture(), "first", at)
	require.NoError(t, err)

	_, added, err = s.Draw(square(10))
	require.NoError(t, err)
	assert.True(t, added, "same shape in a new batch is a new proposal")

	_, _, err = s.Save(context.Background(), saver, fixture(), "second", at.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, s.Select("41", "East", false))
	_, added, err = s.Draw(square(10))
	require.NoError(t, err)
	assert.True(t, added, "same shape after a region change is a new proposal")
	assert.Len(t, s.Status().Pending, 1)
}

func TestSession_RegionSaveKeepsUnassignedBase(t *testing.T) {
	base := append(fixture(), boundary.Boundary{Name: "Unassigned", Color: "#445566", Geometry: square(8)})
	s := New().WithColors(fixedColor)
	require.NoError(t, s.Select("41", "East", false))
	_, _, err := s.Draw(square(12))
	require.NoError(t, err)

	assert.Contains(t, names(s.View(base)), "Unassigned")

	_, merged, err := s.Save(context.Background(), &recordingSaver{}, base, "plan", at)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Baker", "Unassigned", "East (Proposed)"}, names(merged))
}

func TestSession_SaveFailureKeepsPending(t *testing.T) {
	s := New().WithColors(fixedColor)
	require.NoError(t, s.Select("06", "North", false))
	_, _, err := s.Draw(square(10))
	require.NoError(t, err)

	boom := errors.New("disk full")
	_, _, err = s.Save(context.Background(), &recordingSaver{err: boom}, fixture(), "plan", at)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, s.Status().Pending, 1)
	assert.Equal(t, PendingReview, s.State())

	// retry succeeds with the same pending shapes
	saver := &recordingSaver{}
	_, merged, err := s.Save(context.Background(), saver, fixture(), "plan", at)
	require.NoError(t, err)
	assert.Contains(t, names(merged), "North (Proposed)")
	assert.Empty(t, s.Status().Pending)
}

func TestSession_SaveValidation(t *testing.T) {
	s := New().WithColors(fixedColor)
	saver := &recordingSaver{}

	_, _, err := s.Save(context.Background(), saver, fixture(), "plan", at)
	assert.ErrorIs(t, err, boundary.ErrNoPendingShapes)

	require.NoError(t, s.Select("06", "North", false))
	_, _, err = s.Draw(square(10))
	require.NoError(t, err)
	_, _, err = s.Save(context.Background(), saver, fixture(), "!!!", at)
	assert.ErrorIs(t, err, snapshot.ErrEmptyName)
	assert.Empty(t, saver.saved)
	assert.Len(t, s.Status().Pending, 1)
}

func TestSession_TouchedAccumulatesAcrossBatches(t *testing.T) {
	s := New().WithColors(fixedColor)
	saver := &recordingSaver{}

	require.NoError(t, s.Select("06", "North", false))
	_, _, err := s.Draw(square(10))
	require.NoError(t, err)
	_, _, err = s.Save(context.Background(), saver, fixture(), "first", at)
	require.NoError(t, err)

	require.NoError(t, s.Select("41", "East", false))
	_, _, err = s.Draw(square(12))
	require.NoError(t, err)
	assert.Equal(t, []string{"06", "41"}, s.Status().Touched)

	_, merged, err := s.Save(context.Background(), saver, fixture(), "second", at.Add(time.Minute))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alameda", "Marin", "Baker", "East (Proposed)"}, names(merged))
	for _, b := range merged {
		if b.Name == "East (Proposed)" {
			require.NotNil(t, b.Region)
			assert.Equal(t, "41", *b.Region)
		}
	}
}

func TestSession_AllRegionProposalHasNoRegion(t *testing.T) {
	s := New().WithColors(fixedColor)
	require.NoError(t, s.Select(boundary.AllRegions, "", false))
	_, _, err := s.Draw(square(10))
	require.NoError(t, err)

	_, merged, err := s.Save(context.Background(), &recordingSaver{}, fixture(), "all", at)
	require.NoError(t, err)
	assert.Len(t, merged, 4)
	last := merged[len(merged)-1]
	assert.Equal(t, "(Proposed)", last.Name)
	assert.Nil(t, last.Region)
	assert.Empty(t, s.Status().Touched)
	// untouched boundaries keep their color
	assert.Equal(t, "#123456", merged[0].Color)
}

func TestSession_ViewAppliesAssignments(t *testing.T) {
	s := New()
	require.NoError(t, s.Select("06", "", false))
	s.SetAssignments([]upload.Assignment{{CountyName: "Marin", StateFIPS: "06", SalesRep: "Kim"}})

	v := s.View(fixture())
	require.Len(t, v, 2)
	require.NotNil(t, v[1].SalesRep)
	assert.Equal(t, "Kim", *v[1].SalesRep)

	s2 := New()
	assert.Len(t, s2.View(fixture()), 3, "fresh session shows every region")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	s := r.Create()
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	r.Delete(s.ID)
	_, ok = r.Get(s.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Sweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRegistry()
	r.now = func() time.Time { return now }
	stale := r.Create()
	now = now.Add(30 * time.Minute)
	fresh := r.Create()

	now = now.Add(40 * time.Minute)
	assert.Equal(t, 1, r.Sweep(time.Hour))
	_, ok := r.Get(stale.ID)
	assert.False(t, ok)
	_, ok = r.Get(fresh.ID)
	assert.True(t, ok)

	// Get refreshed the fresh session
	now = now.Add(50 * time.Minute)
	assert.Equal(t, 0, r.Sweep(time.Hour))
}
