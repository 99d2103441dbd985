package traffic

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/connectors"
	"github.com/markdave123-py/bostadsdata/internal/core"
)

const situationsJSON = `{"RESPONSE": {"RESULT": [{"Situation": [
  {"Id": "SE_STA_TRISSID_1_1", "Deviation": [
    {"Id": "SE_STA_TRISSID_1_1_1", "Header": "Vägarbete", "Message": "Körfält avstängt.", "MessageType": "Vägarbete",
     "SeverityText": "Liten påverkan", "LocationDescriptor": "E4 vid Uppsala", "StartTime": "2025-03-01T06:00:00.000+01:00",
     "Geometry": {"WGS84": "POINT (17.6389 59.8586)"}},
    {"Id": "", "Header": "saknar id"}
  ]}
]}]}}`

var src = config.Source{
	PaceSeconds: 5,
	Categories: map[string]config.Category{
		"roadwork": {ID: "Vägarbete", Label: "Vägarbete"},
	},
}

func TestParseParams(t *testing.T) {
	p, err := ParseParams(src, "", "key")
	require.NoError(t, err)
	assert.Empty(t, p.MessageType)

	p, err = ParseParams(src, "roadwork", "key")
	require.NoError(t, err)
	assert.Equal(t, "Vägarbete", p.MessageType)

	var ve *core.ValidationError
	_, err = ParseParams(src, "flood", "key")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "category", ve.Param)

	_, err = ParseParams(src, "", "")
	require.ErrorAs(t, err, &ve)
}

func TestBuildRequest(t *testing.T) {
	body, err := buildRequest(Params{APIKey: `k"<&`, MessageType: "Vägarbete"})
	require.NoError(t, err)

	var back request
	require.NoError(t, xml.Unmarshal(body, &back))
	assert.Equal(t, `k"<&`, back.Login.Key)
	assert.Equal(t, "Situation", back.Query.ObjectType)
	require.NotNil(t, back.Query.Filter)
	assert.Equal(t, "Deviation.MessageType", back.Query.Filter.EQ.Name)
	assert.Equal(t, "Vägarbete", back.Query.Filter.EQ.Value)

	body, err = buildRequest(Params{APIKey: "k"})
	require.NoError(t, err)
	assert.NotContains(t, string(body), "FILTER")
}

func TestFetchAndNormalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/xml", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `authenticationkey="secret"`)
		_, _ = w.Write([]byte(situationsJSON))
	}))
	defer srv.Close()

	s := src
	s.URL = srv.URL
	p, err := ParseParams(s, "", "secret")
	require.NoError(t, err)
	ds := New(s, connectors.NewClient(Name, time.Second), p)

	raws, err := ds.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, raws, 2)

	n := ds.Normalize(raws[0])
	require.True(t, n.OK)
	ts := n.Record
	assert.Equal(t, "SE_STA_TRISSID_1_1_1", ts.DeviationID)
	assert.Equal(t, "SE_STA_TRISSID_1_1", ts.SituationID)
	require.NotNil(t, ts.Location)
	assert.Equal(t, 17.6389, ts.Location.Lng)
	assert.Equal(t, 59.8586, ts.Location.Lat)
	require.NotNil(t, ts.StartTime)
	assert.Equal(t, 5, ts.StartTime.Hour())
	assert.Nil(t, ts.EndTime)
	assert.Equal(t, "Vägarbete. Körfält avstängt. E4 vid Uppsala.", ts.EmbeddableText())

	assert.False(t, ds.Normalize(raws[1]).OK)
}

func TestFetchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"RESPONSE":{"RESULT":[{"ERROR":{"SOURCE":"Request","MESSAGE":"Invalid authenticationkey"}}]}}`))
	}))
	defer srv.Close()

	s := src
	s.URL = srv.URL
	_, err := New(s, connectors.NewClient(Name, time.Second), Params{APIKey: "x"}).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid authenticationkey")
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := src
	s.URL = srv.URL
	_, err := New(s, connectors.NewClient(Name, time.Second), Params{APIKey: "x"}).Fetch(context.Background())
	var se *core.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
}
