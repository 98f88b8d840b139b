package tenantconf

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	sections map[string]map[string]json.RawMessage // tenant -> section -> data
	getCalls int
	getErr   error
	putErr   error
}

func newFakeSource() *fakeSource {
	return &fakeSource{sections: make(map[string]map[string]json.RawMessage)}
}

func (f *fakeSource) GetConfigSections(_ context.Context, tenantID string) (map[string]json.RawMessage, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.sections[tenantID], nil
}

func (f *fakeSource) PutConfigSection(_ context.Context, tenantID, section string, data json.RawMessage) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.sections[tenantID] == nil {
		f.sections[tenantID] = make(map[string]json.RawMessage)
	}
	f.sections[tenantID][section] = data
	return nil
}

func (f *fakeSource) DeleteConfigSection(_ context.Context, tenantID, section string) error {
	delete(f.sections[tenantID], section)
	return nil
}

func TestLoadDefaultsWhenEmpty(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, time.Minute)

	cfg := l.Load(context.Background(), "t1")
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadAppliesOverrides(t *testing.T) {
	src := newFakeSource()
	require.NoError(t, src.PutConfigSection(context.Background(), "t1",
		"contentLimits", json.RawMessage(`{"aiContentLimit": 1234}`)))
	l := NewLoader(src, time.Minute)

	cfg := l.Load(context.Background(), "t1")
	assert.Equal(t, 1234, cfg.ContentLimits.AIContentLimit)
}

func TestLoadCachesWithinTTL(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, time.Minute)

	l.Load(context.Background(), "t1")
	l.Load(context.Background(), "t1")
	assert.Equal(t, 1, src.getCalls)
}

func TestLoadExpiresAfterTTL(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, time.Minute)

	now := time.Now()
	l.now = func() time.Time { return now }
	l.Load(context.Background(), "t1")

	l.now = func() time.Time { return now.Add(2 * time.Minute) }
	l.Load(context.Background(), "t1")
	assert.Equal(t, 2, src.getCalls)
}

func TestLoadCacheIsPerTenant(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, time.Minute)

	l.Load(context.Background(), "t1")
	l.Load(context.Background(), "t2")
	assert.Equal(t, 2, src.getCalls)
}

func TestLoadStoreFaultFallsBackToDefaults(t *testing.T) {
	src := newFakeSource()
	src.getErr = eris.New("db down")
	l := NewLoader(src, time.Minute)

	cfg := l.Load(context.Background(), "t1")
	assert.Equal(t, Defaults(), cfg)

	// Fault result is not cached; recovery is picked up immediately.
	src.getErr = nil
	l.Load(context.Background(), "t1")
	assert.Equal(t, 2, src.getCalls)
}

func TestSetSectionInvalidatesCache(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, time.Minute)

	cfg := l.Load(context.Background(), "t1")
	assert.Equal(t, Defaults().ContentLimits.AIContentLimit, cfg.ContentLimits.AIContentLimit)

	require.NoError(t, l.SetSection(context.Background(), "t1",
		"contentLimits", json.RawMessage(`{"aiContentLimit": 99}`)))

	cfg = l.Load(context.Background(), "t1")
	assert.Equal(t, 99, cfg.ContentLimits.AIContentLimit)
}

func TestSetSectionRejectsUnknownName(t *testing.T) {
	l := NewLoader(newFakeSource(), time.Minute)
	err := l.SetSection(context.Background(), "t1", "bogus", json.RawMessage(`{}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown section")
}

func TestSetSectionRejectsNonObject(t *testing.T) {
	l := NewLoader(newFakeSource(), time.Minute)
	err := l.SetSection(context.Background(), "t1", "keywords", json.RawMessage(`["not","an","object"]`))
	assert.Error(t, err)
}

func TestResetSectionRestoresDefault(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, time.Minute)

	require.NoError(t, l.SetSection(context.Background(), "t1",
		"thresholds", json.RawMessage(`{"urgencyHigh": 10}`)))
	cfg := l.Load(context.Background(), "t1")
	assert.Equal(t, 10, cfg.Thresholds.UrgencyHigh)

	require.NoError(t, l.ResetSection(context.Background(), "t1", "thresholds"))
	cfg = l.Load(context.Background(), "t1")
	assert.Equal(t, Defaults().Thresholds.UrgencyHigh, cfg.Thresholds.UrgencyHigh)
}

func TestInvalidateAll(t *testing.T) {
	src := newFakeSource()
	l := NewLoader(src, time.Minute)

	l.Load(context.Background(), "t1")
	l.Load(context.Background(), "t2")
	l.InvalidateAll()
	l.Load(context.Background(), "t1")
	l.Load(context.Background(), "t2")
	assert.Equal(t, 4, src.getCalls)
}
