package campaign

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"campaign-console/pkg/middleware"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	svc := newTestService(t)

	r := gin.New()
	r.Use(middleware.Error())
	RegisterRoutes(r, NewHandler(svc))
	return r, svc
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerCreateAndGet(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/v1/campaigns", `{"type":"POLL","title":"Handler poll","channels":["web"]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created Campaign
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, StateDraft, created.State)
	require.Equal(t, "Handler poll", created.Title)

	w = doRequest(r, http.MethodGet, fmt.Sprintf("/api/v1/campaigns/%d", created.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandlerErrorMapping(t *testing.T) {
	r, svc := newTestRouter(t)

	t.Run("unknown id is 404", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/campaigns/42", "")
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-numeric id is 400", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/campaigns/abc", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("gating failure is 422 with reasons", func(t *testing.T) {
		// no channels, so the gate refuses
		w := doRequest(r, http.MethodPost, "/api/v1/campaigns", `{"type":"POLL"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		var c Campaign
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))

		w = doRequest(r, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/publish", c.ID), `{}`)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Contains(t, w.Body.String(), "At least one channel must be selected before publishing.")
	})

	t.Run("illegal transition is 409", func(t *testing.T) {
		c := draftPoll(t, svc)
		w := doRequest(r, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/stop", c.ID), "")
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("deleting a non draft is 409", func(t *testing.T) {
		c := draftPoll(t, svc)
		w := doRequest(r, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/publish", c.ID), `{}`)
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(r, http.MethodDelete, fmt.Sprintf("/api/v1/campaigns/%d", c.ID), "")
		require.Equal(t, http.StatusConflict, w.Code)
		require.Contains(t, w.Body.String(), "Only Draft campaigns can be deleted")
	})
}

func TestHandlerReport(t *testing.T) {
	r, svc := newTestRouter(t)

	c := draftPoll(t, svc)

	w := doRequest(r, http.MethodGet, fmt.Sprintf("/api/v1/campaigns/%d/report", c.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	var report Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Equal(t, c.CampaignID, report.CampaignID)
	require.Positive(t, report.Impressions)

	// stable across requests
	again := doRequest(r, http.MethodGet, fmt.Sprintf("/api/v1/campaigns/%d/report", c.ID), "")
	require.Equal(t, w.Body.String(), again.Body.String())

	w = doRequest(r, http.MethodGet, "/api/v1/campaigns/999/report", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

// State tokens arrive from clients in whatever casing their UI uses.
func TestHandlerTransitionCaseInsensitive(t *testing.T) {
	r, svc := newTestRouter(t)

	c := draftPoll(t, svc)

	w := doRequest(r, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/transition", c.ID), `{"newState":"Live"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var updated Campaign
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Equal(t, StateLive, updated.State)

	w = doRequest(r, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/transition", c.ID), `{"newState":"paused"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "unknown state")
}

func TestHandlerCatalogs(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/v1/campaign-types", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"QUIZ"`)

	w = doRequest(r, http.MethodGet, "/api/v1/channels", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"web"`)
}

func TestHandlerList(t *testing.T) {
	r, svc := newTestRouter(t)

	draftPoll(t, svc)
	draftPoll(t, svc)

	w := doRequest(r, http.MethodGet, "/api/v1/campaigns?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Campaigns []Campaign `json:"campaigns"`
		PageInfo  struct {
			TotalCount int64 `json:"totalCount"`
			HasMore    bool  `json:"hasMore"`
		} `json:"pageInfo"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Campaigns, 1)
	require.EqualValues(t, 2, resp.PageInfo.TotalCount)
	require.True(t, resp.PageInfo.HasMore)
}
