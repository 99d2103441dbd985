package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/logger"
	"github.com/markdave123-py/bostadsdata/internal/services"
)

type noHits struct{}

func (noHits) Search(context.Context, services.SearchRequest) ([]core.SearchHit, error) {
	return []core.SearchHit{}, nil
}

func TestRouter(t *testing.T) {
	open := NewRouter(&config.Config{CORSOrigins: []string{"http://localhost:5173"}}, noHits{}, logger.Nop())

	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?dataset=police&q=brand", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	locked := NewRouter(&config.Config{JWTSecret: "s"}, noHits{}, logger.Nop())

	rec = httptest.NewRecorder()
	locked.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?dataset=police&q=brand", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	locked.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health stays public")
}
