package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/peoplecount/internal/config"
	"github.com/MeKo-Tech/peoplecount/internal/server"
)

// theCountingServerIsRunning starts an in-process server whose pipeline
// treats uploads as ready-made masks.
func (testCtx *TestContext) theCountingServerIsRunning() error {
	return testCtx.startServer(0)
}

func (testCtx *TestContext) theCountingServerIsRunningWithThreshold(threshold float64) error {
	return testCtx.startServer(threshold)
}

func (testCtx *TestContext) startServer(threshold float64) error {
	testCtx.StopServer()

	cfg := config.DefaultConfig()
	cfg.Preprocess.Method = "none"
	if threshold > 0 {
		cfg.Matching.Threshold = threshold
	}
	srv, err := server.NewServer(server.Config{
		CORSOrigin:     cfg.Server.CORSOrigin,
		MaxUploadMB:    int64(cfg.Server.MaxUploadMB),
		TimeoutSec:     cfg.Server.TimeoutSec,
		PipelineConfig: cfg.ToPipelineConfig(),
		OverlayColor:   cfg.Output.OverlayColor,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPServer = httptest.NewServer(srv.Handler())
	return nil
}

func (testCtx *TestContext) serverURL(path string) (string, error) {
	if testCtx.HTTPServer == nil {
		return "", errors.New("server is not running")
	}
	return testCtx.HTTPServer.URL + path, nil
}

// iSendAGETRequestTo performs a GET against the running server.
func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return testCtx.storeResponse(resp)
}

// iUploadTo posts an image from the scenario directory as multipart "image".
func (testCtx *TestContext) iUploadTo(image, path string) error {
	return testCtx.upload(image, path, nil)
}

// iUploadToWithFields posts an image with extra form fields given as a table
// of name and value rows.
func (testCtx *TestContext) iUploadToWithFields(image, path string, table *godog.Table) error {
	fields := map[string]string{}
	for _, row := range table.Rows {
		if len(row.Cells) != 2 {
			return errors.New("form field table needs two columns")
		}
		fields[row.Cells[0].Value] = row.Cells[1].Value
	}
	return testCtx.upload(image, path, fields)
}

func (testCtx *TestContext) upload(image, path string, fields map[string]string) error {
	url, err := testCtx.serverURL(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.Path(image))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", image, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filepath.Base(image))
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	return testCtx.storeResponse(resp)
}

func (testCtx *TestContext) storeResponse(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = data
	testCtx.LastHTTPHeaders = resp.Header
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !bytes.Contains(testCtx.LastHTTPResponse, []byte(text)) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseContentTypeShouldBe(contentType string) error {
	if got := testCtx.LastHTTPHeaders.Get("Content-Type"); !strings.HasPrefix(got, contentType) {
		return fmt.Errorf("expected content type %s, got %s", contentType, got)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldEqual(field, expected string) error {
	var data map[string]any
	if err := json.Unmarshal(testCtx.LastHTTPResponse, &data); err != nil {
		return fmt.Errorf("response is not valid JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	return fieldEquals(data, field, expected)
}

// iSendOverTheWebSocket sends a detect request for image and keeps the final
// message as the response body.
func (testCtx *TestContext) iSendOverTheWebSocket(image string) error {
	url, err := testCtx.serverURL("/ws/detect")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.Path(image))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", image, err)
	}

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	req, err := json.Marshal(server.WebSocketDetectRequest{Type: "detect", Name: image, Image: data})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		return err
	}
	if err := conn.SetReadDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read: %w", err)
		}
		var r server.WebSocketDetectResponse
		if err := json.Unmarshal(msg, &r); err != nil {
			return err
		}
		if r.Status == "completed" || r.Status == "error" {
			testCtx.LastHTTPResponse = msg
			return nil
		}
	}
}

// RegisterServerSteps registers HTTP and websocket steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the counting server is running$`, testCtx.theCountingServerIsRunning)
	sc.Step(`^the counting server is running with threshold ([0-9.]+)$`,
		testCtx.theCountingServerIsRunningWithThreshold)
	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)" with fields:$`, testCtx.iUploadToWithFields)
	sc.Step(`^I send "([^"]*)" over the websocket$`, testCtx.iSendOverTheWebSocket)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response content type should be "([^"]*)"$`, testCtx.theResponseContentTypeShouldBe)
	sc.Step(`^the response JSON field "([^"]*)" should equal "([^"]*)"$`, testCtx.theResponseJSONFieldShouldEqual)
}
