package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketSim/internal/domain/models"
	"MarketSim/pkg/logger"
)

func TestRemoteExplainer_UsesService(t *testing.T) {
	var got models.StoryContext
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/explain", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(models.ExplanationResponse{
			Story: models.Story{Title: "remote title", Explanation: "because"},
		})
	}))
	defer srv.Close()

	r := NewRemoteExplainer(srv.URL+"/", time.Second, NewGenerator(constSource(0)), logger.Nop())
	story, err := r.Explain(context.Background(), storyInput(1))

	require.NoError(t, err)
	assert.Equal(t, "remote title", story.Title)
	assert.Equal(t, SourceRemote, story.Source)
	assert.Equal(t, "financial-services", got.Sector)
	assert.Nil(t, got.Closes)
}

func TestRemoteExplainer_FallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewRemoteExplainer(srv.URL, time.Second, NewGenerator(constSource(0)), logger.Nop())
	story, err := r.Explain(context.Background(), storyInput(5))

	require.NoError(t, err)
	assert.Equal(t, SourceLocal, story.Source)
	assert.Equal(t, models.StoryStrongBullish, story.Type)
}

func TestRemoteExplainer_FallsBackWhenUnreachable(t *testing.T) {
	r := NewRemoteExplainer("http://127.0.0.1:1", 200*time.Millisecond, NewGenerator(constSource(0)), logger.Nop())
	story, err := r.Explain(context.Background(), storyInput(-5))

	require.NoError(t, err)
	assert.Equal(t, SourceLocal, story.Source)
}
