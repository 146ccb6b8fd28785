package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ecowise/idftab/internal/artifact"
	"github.com/ecowise/idftab/internal/convert"
	"github.com/ecowise/idftab/internal/testutil"
)

const testModel = `! api test model
Version,9.4.0;

Material,
  Gypsum Board,            !- Name
  MediumSmooth,            !- Roughness
  0.019;                   !- Thickness {m}

Zone,
  Main Zone,               !- Name
  0;                       !- Direction of Relative North {deg}
`

// testEnv builds a service over temp stores and returns a router.
// authToken == "" means auth is disabled.
func testEnv(t *testing.T, authToken string) (http.Handler, *artifact.Memory) {
	t.Helper()

	catalog := testutil.TestCatalog(t)
	jobs := testutil.TestJobStore(t)
	artifacts := artifact.NewMemory()
	svc := convert.NewService(catalog, jobs, artifacts, nil, nil)

	router := NewRouter(svc, jobs, artifacts, authToken != "", authToken, nil)
	return router, artifacts
}

// multipartBody builds a multipart form with file and value fields.
func multipartBody(t *testing.T, files, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".txt")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	for field, v := range values {
		if err := mw.WriteField(field, v); err != nil {
			t.Fatal(err)
		}
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestConvertEndpoint(t *testing.T) {
	router, _ := testEnv(t, "")

	body, ct := multipartBody(t, map[string]string{"idf": testModel}, nil)
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("convert status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp ConvertResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.JobID == "" {
		t.Error("job_id is empty")
	}
	if resp.Version != "9.4" {
		t.Errorf("version = %q, want 9.4", resp.Version)
	}
	if resp.Stats.Objects != 3 || resp.Stats.Rows != 6 {
		t.Errorf("stats = %+v", resp.Stats)
	}

	// Job record is retrievable.
	req = httptest.NewRequest(http.MethodGet, "/jobs/"+resp.JobID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get job status = %d", w.Code)
	}

	// The workbook artifact streams back.
	req = httptest.NewRequest(http.MethodGet, "/artifacts/"+resp.Artifact, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get artifact status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/zip" {
		t.Errorf("artifact content type = %q", got)
	}
}

func TestConvertMissingFile(t *testing.T) {
	router, _ := testEnv(t, "")

	body, ct := multipartBody(t, nil, map[string]string{"version": "9.4"})
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestConvertParseError(t *testing.T) {
	router, _ := testEnv(t, "")

	body, ct := multipartBody(t, map[string]string{"idf": "Version,9.4;\nZone,A; trailing"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body = %s", w.Code, w.Body.String())
	}

	var resp errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Position == nil {
		t.Fatal("parse error response has no position")
	}
	if resp.Position.Line != 2 {
		t.Errorf("position line = %d, want 2", resp.Position.Line)
	}
}

func TestConvertVersionUndetermined(t *testing.T) {
	router, _ := testEnv(t, "")

	body, ct := multipartBody(t, map[string]string{"idf": "Zone,A,0;"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}

	var resp errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Available) != 1 || resp.Available[0] != "9.4" {
		t.Errorf("available = %v, want [9.4]", resp.Available)
	}
}

func TestUpdateJSONEndpoint(t *testing.T) {
	router, _ := testEnv(t, "")

	payload, _ := json.Marshal(UpdateJSONRequest{
		Name: "house.idf",
		IDF:  testModel,
		Edits: []EditRequest{
			{Instance: 1, Position: 2, Value: "0.025"},
		},
		Verify: true,
	})
	req := httptest.NewRequest(http.MethodPost, "/update", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp UpdateResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Report.Applied != 1 {
		t.Errorf("applied = %d, want 1", resp.Report.Applied)
	}
	if resp.Artifact == "" {
		t.Error("artifact key is empty")
	}
}

func TestUpdateJSONValidation(t *testing.T) {
	router, _ := testEnv(t, "")

	// Missing edits.
	payload, _ := json.Marshal(UpdateJSONRequest{IDF: testModel})
	req := httptest.NewRequest(http.MethodPost, "/update", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdateConflictResponse(t *testing.T) {
	router, _ := testEnv(t, "")

	payload, _ := json.Marshal(UpdateJSONRequest{
		IDF: testModel,
		Edits: []EditRequest{
			{Instance: 1, Position: 2, Value: "bad;value"},
			{Instance: 99, Position: 0, Value: "x"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/update", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", w.Code, w.Body.String())
	}

	var resp errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Conflicts) != 2 {
		t.Errorf("conflicts = %d, want 2", len(resp.Conflicts))
	}
}

func TestUpdateMultipartEndpoint(t *testing.T) {
	router, _ := testEnv(t, "")

	rowsCSV := "ObjectType,ObjectName,FieldName,Value,Unit\n" +
		"Version,9.4.0,Version Identifier,9.4.0,\n" +
		"Material,Gypsum Board,Name,Gypsum Board,\n" +
		"Material,Gypsum Board,Roughness,Smooth,\n" +
		"Material,Gypsum Board,Thickness,0.019,m\n" +
		"Zone,Main Zone,Name,Main Zone,\n" +
		"Zone,Main Zone,Direction of Relative North,0,deg\n"

	body, ct := multipartBody(t,
		map[string]string{"idf": testModel, "rows": rowsCSV},
		map[string]string{"verify": "true"})
	req := httptest.NewRequest(http.MethodPost, "/update", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp UpdateResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Report.Applied != 1 {
		t.Errorf("applied = %d, want 1", resp.Report.Applied)
	}
	if len(resp.Report.Edits) != 1 || resp.Report.Edits[0].NewValue != "Smooth" {
		t.Errorf("edits = %+v", resp.Report.Edits)
	}
}

func TestDetectEndpoint(t *testing.T) {
	router, _ := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader(testModel))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("detect status = %d", w.Code)
	}

	var resp struct {
		Declared  string `json:"declared"`
		Suggested string `json:"suggested"`
		Exact     bool   `json:"exact"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Declared != "9.4.0" || resp.Suggested != "9.4" || !resp.Exact {
		t.Errorf("detect = %+v", resp)
	}
}

func TestVersionsEndpoint(t *testing.T) {
	router, _ := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/versions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("versions status = %d", w.Code)
	}
	var resp VersionsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Versions) != 1 || resp.Versions[0] != "9.4" {
		t.Errorf("versions = %v", resp.Versions)
	}
}

func TestJobsListEndpoint(t *testing.T) {
	router, _ := testEnv(t, "")

	body, ct := multipartBody(t, map[string]string{"idf": testModel}, nil)
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatal(w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/jobs", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list jobs status = %d", w.Code)
	}
	var resp struct {
		Total int `json:"total"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}
}

func TestJobNotFound(t *testing.T) {
	router, _ := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/jobs/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAuth(t *testing.T) {
	router, _ := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/versions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/versions", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/versions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}
}
