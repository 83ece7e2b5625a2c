package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-rubric-api/internal/dto"
	"github.com/noah-isme/gema-rubric-api/internal/handler"
	"github.com/noah-isme/gema-rubric-api/internal/rubric"
	"github.com/noah-isme/gema-rubric-api/internal/service"
)

type stubRubricService struct {
	rubric   rubric.Rubric
	list     dto.RubricListResponse
	err      error
	imported []byte
}

func (s *stubRubricService) Create(context.Context, []byte, service.ActivityActor) (rubric.Rubric, error) {
	return s.rubric, s.err
}

func (s *stubRubricService) Import(_ context.Context, _ string, data []byte, _ service.ActivityActor) (rubric.Rubric, error) {
	s.imported = data
	return s.rubric, s.err
}

func (s *stubRubricService) Get(context.Context, uint) (rubric.Rubric, error) {
	return s.rubric, s.err
}

func (s *stubRubricService) List(context.Context, int, int) (dto.RubricListResponse, error) {
	return s.list, s.err
}

func newRubricApp(svc service.RubricService, maxImport int) *fiber.App {
	app := fiber.New()
	h := handler.NewRubricHandler(svc, maxImport, zerolog.Nop())
	group := app.Group("/api/v2/rubrics")
	h.RegisterAuthoring(group)
	h.Register(group)
	return app
}

func handlerSampleRubric() rubric.Rubric {
	outcome := "77"
	return rubric.Rubric{
		ID:             "3",
		Title:          "Essay",
		PointsPossible: 4,
		Criteria: []rubric.Criterion{
			{
				ID:                "_4481",
				Description:       "Organization",
				Points:            4,
				CriterionUseRange: true,
				LearningOutcomeID: &outcome,
				Ratings:           []rubric.Rating{{ID: "o1", Points: 4, Description: "Full marks"}},
			},
		},
	}
}

func TestRubricHandlerGetFormats(t *testing.T) {
	app := newRubricApp(&stubRubricService{rubric: handlerSampleRubric()}, 0)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/rubrics/3", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var wire struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&wire))
	require.Contains(t, wire.Data, "points_possible")
	criterion := wire.Data["criteria"].([]interface{})[0].(map[string]interface{})
	require.Equal(t, true, criterion["criterion_use_range"])
	require.Equal(t, "77", criterion["learning_outcome_id"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/rubrics/3?format=view", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	require.Contains(t, view.Data, "pointsPossible")
	criterion = view.Data["criteria"].([]interface{})[0].(map[string]interface{})
	require.Equal(t, true, criterion["criterionUseRange"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/rubrics/3?format=yaml", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRubricHandlerGetMissing(t *testing.T) {
	app := newRubricApp(&stubRubricService{err: service.ErrRubricNotFound}, 0)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/rubrics/9", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/rubrics/abc", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRubricHandlerCreateRejectsInvalidRubric(t *testing.T) {
	app := newRubricApp(&stubRubricService{err: rubric.ErrInvalidRubric}, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/rubrics", bytes.NewBufferString(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/api/v2/rubrics", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func multipartRubric(t *testing.T, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "rubric.json")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestRubricHandlerImport(t *testing.T) {
	svc := &stubRubricService{rubric: handlerSampleRubric()}
	app := newRubricApp(svc, 64)

	body, contentType := multipartRubric(t, []byte(`{"title":"Essay","criteria":[]}`))
	req := httptest.NewRequest(http.MethodPost, "/api/v2/rubrics/import", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.JSONEq(t, `{"title":"Essay","criteria":[]}`, string(svc.imported))

	body, contentType = multipartRubric(t, bytes.Repeat([]byte("x"), 128))
	req = httptest.NewRequest(http.MethodPost, "/api/v2/rubrics/import", body)
	req.Header.Set("Content-Type", contentType)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRubricHandlerImportUnsupportedType(t *testing.T) {
	app := newRubricApp(&stubRubricService{err: service.ErrUnsupportedRubricFile}, 0)

	body, contentType := multipartRubric(t, []byte("title: essay"))
	req := httptest.NewRequest(http.MethodPost, "/api/v2/rubrics/import", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestRubricHandlerList(t *testing.T) {
	svc := &stubRubricService{list: dto.RubricListResponse{
		Items:      []dto.RubricSummary{{ID: 3, Title: "Essay", CriteriaCount: 2}},
		Pagination: dto.PaginationMeta{Page: 1, PageSize: 20, TotalItems: 1, TotalPages: 1},
	}}
	app := newRubricApp(svc, 0)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/rubrics?page_size=500", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data []dto.RubricSummary `json:"data"`
		Meta dto.PaginationMeta  `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 1)
	require.Equal(t, int64(1), envelope.Meta.TotalItems)
}
