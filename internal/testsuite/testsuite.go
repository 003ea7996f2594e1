// Package testsuite runs godog feature files against an http.Handler.
package testsuite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
	"github.com/stretchr/testify/assert"
)

// DBSeeder loads the rows of a feature table into a store.
type DBSeeder interface {
	Seed(ts *TestSuite, document string, data *godog.Table) error
}

// SeederFunc stores one table row and returns the new document's id.
type SeederFunc func(row map[string]string) (string, error)

// Seed implements DBSeeder. A "key" column, when present, names the Storage
// slot the new id is kept under and is not passed to the func.
func (f SeederFunc) Seed(ts *TestSuite, document string, data *godog.Table) error {
	rows, err := tableRows(data)
	if err != nil {
		return err
	}
	for _, row := range rows {
		key := row["key"]
		delete(row, "key")
		id, err := f(row)
		if err != nil {
			return fmt.Errorf("seeding %s: %w", document, err)
		}
		if key != "" {
			ts.Storage[key] = id
		}
	}
	return nil
}

type TestSuite struct {
	T           *testing.T
	Router      http.Handler
	Resp        *http.Response
	RespBody    []byte
	Storage     map[string]string
	RequestBody []byte
	BaseURL     string
	DbSeeders   map[string]DBSeeder
	// Reset runs before each scenario, e.g. to swap in an empty store.
	Reset func() error
}

func New(router http.Handler) *TestSuite {
	return &TestSuite{
		Router:    router,
		Storage:   make(map[string]string),
		DbSeeders: make(map[string]DBSeeder),
	}
}

type TestLogger struct {
	T *testing.T
}

func (ts *TestSuite) RegisterDBSeeder(document string, seeder DBSeeder) {
	ts.DbSeeders[document] = seeder
}

func (ts *TestSuite) SetBaseURL(baseURL string) {
	ts.BaseURL = baseURL
}

func (ts *TestSuite) InitializeScenario(ctx *godog.ScenarioContext) {
	ctx.BeforeScenario(func(sc *godog.Scenario) {
		ts.Resp = nil
		ts.RespBody = nil
		ts.RequestBody = nil
		ts.Storage = make(map[string]string)
		if ts.Reset != nil {
			if err := ts.Reset(); err != nil {
				ts.T.Fatalf("reset before %q: %v", sc.Name, err)
			}
		}
	})

	ctx.Step(`^document "([^"]*)" has the following items$`, ts.documentHasTheFollowingItems)
	ctx.Step(`^I send a POST request to "([^"]*)" with body$`, ts.iSendAPOSTRequestToWithBody)
	ctx.Step(`^I send a POST request to "([^"]*)" with JSON$`, ts.iSendAPOSTRequestToWithJSON)
	ctx.Step(`^I send a GET request to "([^"]*)"$`, ts.iSendAGETRequestTo)
	ctx.Step(`^the response status should be (\d+)$`, ts.theResponseStatusShouldBe)
	ctx.Step(`^the response "([^"]*)" field is stored as "([^"]*)"$`, ts.theResponseFieldIsStoredAs)
	ctx.Step(`^the response "([^"]*)" field should be "([^"]*)"$`, ts.theResponseFieldShouldBe)
	ctx.Step(`^the response "([^"]*)" field should equal stored "([^"]*)"$`, ts.theResponseFieldShouldEqualStored)
	ctx.Step(`^the response "([^"]*)" field should not equal stored "([^"]*)"$`, ts.theResponseFieldShouldNotEqualStored)
	ctx.Step(`^the response "([^"]*)" field should be the JSON (.*)$`, ts.theResponseFieldShouldBeTheJSON)
	ctx.Step(`^the response should contain an item with$`, ts.theResponseShouldContainAnItemWith)
	ctx.Step(`^the response should be a list of (\d+) items$`, ts.theResponseShouldBeAListOfItems)
	ctx.Step(`^the response list "([^"]*)" values should be "([^"]*)"$`, ts.theResponseListValuesShouldBe)
	ctx.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, ts.theResponseHeaderShouldBe)
}

func (ts *TestSuite) documentHasTheFollowingItems(document string, data *godog.Table) error {
	seeder, ok := ts.DbSeeders[document]
	if !ok {
		return fmt.Errorf("no seeder registered for document %s", document)
	}
	return seeder.Seed(ts, document, data)
}

var placeholder = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// expand replaces {key} with the value stored under key.
func (ts *TestSuite) expand(s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := ts.Storage[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

func (ts *TestSuite) do(method, path string, body []byte) error {
	path = ts.expand(path)

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if ts.BaseURL != "" {
		client := &http.Client{}
		ts.Resp, err = client.Do(req)
		if err != nil {
			return err
		}
	} else {
		w := httptest.NewRecorder()
		ts.Router.ServeHTTP(w, req)
		ts.Resp = w.Result()
	}

	defer ts.Resp.Body.Close()
	ts.RespBody, err = io.ReadAll(ts.Resp.Body)
	return err
}

func (ts *TestSuite) iSendAPOSTRequestToWithBody(path string, body *godog.Table) error {
	var err error
	ts.RequestBody, err = ts.parseDataTableToJSON(body)
	if err != nil {
		return err
	}
	return ts.do(http.MethodPost, path, ts.RequestBody)
}

func (ts *TestSuite) iSendAPOSTRequestToWithJSON(path string, body *godog.DocString) error {
	ts.RequestBody = []byte(ts.expand(body.Content))
	return ts.do(http.MethodPost, path, ts.RequestBody)
}

func (ts *TestSuite) iSendAGETRequestTo(path string) error {
	return ts.do(http.MethodGet, path, nil)
}

func (ts *TestSuite) theResponseStatusShouldBe(status int) error {
	if ts.Resp.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, ts.Resp.StatusCode, ts.RespBody)
	}
	return nil
}

func (ts *TestSuite) responseObject() (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(ts.RespBody, &data); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	return data, nil
}

func (ts *TestSuite) responseField(field string) (interface{}, error) {
	data, err := ts.responseObject()
	if err != nil {
		return nil, err
	}
	val, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}
	return val, nil
}

func (ts *TestSuite) theResponseFieldIsStoredAs(field, key string) error {
	val, err := ts.responseField(field)
	if err != nil {
		return err
	}
	ts.Storage[key] = fmt.Sprintf("%v", val)
	return nil
}

func (ts *TestSuite) theResponseFieldShouldBe(field, expected string) error {
	val, err := ts.responseField(field)
	if err != nil {
		return err
	}
	if actual := fmt.Sprintf("%v", val); actual != ts.expand(expected) {
		return fmt.Errorf("field %s: expected %q, got %q", field, ts.expand(expected), actual)
	}
	return nil
}

func (ts *TestSuite) theResponseFieldShouldEqualStored(field, key string) error {
	return ts.theResponseFieldShouldBe(field, "{"+key+"}")
}

func (ts *TestSuite) theResponseFieldShouldNotEqualStored(field, key string) error {
	val, err := ts.responseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", val) == ts.Storage[key] {
		return fmt.Errorf("field %s unexpectedly equals stored %s (%q)", field, key, ts.Storage[key])
	}
	return nil
}

func (ts *TestSuite) theResponseFieldShouldBeTheJSON(field, expected string) error {
	val, err := ts.responseField(field)
	if err != nil {
		return err
	}
	actual, err := json.Marshal(val)
	if err != nil {
		return err
	}
	if !assert.JSONEq(ts.T, expected, string(actual)) {
		return fmt.Errorf("field %s: expected %s, got %s", field, expected, actual)
	}
	return nil
}

func (ts *TestSuite) theResponseShouldContainAnItemWith(body *godog.Table) error {
	rows, err := tableRows(body)
	if err != nil {
		return err
	}

	actualMap, err := ts.responseObject()
	if err != nil {
		return err
	}

	for key, expectedValue := range rows[0] {
		actualValue, ok := actualMap[key]
		if !ok {
			return fmt.Errorf("field %s not found in response", key)
		}
		if actual := fmt.Sprintf("%v", actualValue); actual != ts.expand(expectedValue) {
			return fmt.Errorf("field %s: expected %q, got %q", key, ts.expand(expectedValue), actual)
		}
	}
	return nil
}

func (ts *TestSuite) responseList() ([]map[string]interface{}, error) {
	var list []map[string]interface{}
	if err := json.Unmarshal(ts.RespBody, &list); err != nil {
		return nil, fmt.Errorf("response is not a JSON list: %w", err)
	}
	if list == nil {
		return nil, fmt.Errorf("response is null, expected a list")
	}
	return list, nil
}

func (ts *TestSuite) theResponseShouldBeAListOfItems(n int) error {
	list, err := ts.responseList()
	if err != nil {
		return err
	}
	if len(list) != n {
		return fmt.Errorf("expected %d items, got %d", n, len(list))
	}
	return nil
}

// theResponseListValuesShouldBe compares one field across the list, in order,
// against a comma-separated expectation.
func (ts *TestSuite) theResponseListValuesShouldBe(field, expected string) error {
	list, err := ts.responseList()
	if err != nil {
		return err
	}
	values := make([]string, len(list))
	for i, item := range list {
		values[i] = fmt.Sprintf("%v", item[field])
	}
	if actual := strings.Join(values, ","); actual != expected {
		return fmt.Errorf("list %s: expected %q, got %q", field, expected, actual)
	}
	return nil
}

func (ts *TestSuite) theResponseHeaderShouldBe(header, expected string) error {
	if actual := ts.Resp.Header.Get(header); actual != expected {
		return fmt.Errorf("header %s: expected %q, got %q", header, expected, actual)
	}
	return nil
}

func (ts *TestSuite) parseDataTableToJSON(body *godog.Table) ([]byte, error) {
	rows, err := tableRows(body)
	if err != nil {
		return nil, err
	}
	data := make(map[string]interface{}, len(rows[0]))
	for k, v := range rows[0] {
		data[k] = ts.expand(v)
	}
	return json.Marshal(data)
}

func tableRows(table *godog.Table) ([]map[string]string, error) {
	if len(table.Rows) < 2 {
		return nil, fmt.Errorf("table must have at least two rows")
	}
	headers := table.Rows[0].Cells
	rows := make([]map[string]string, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		data := make(map[string]string, len(row.Cells))
		for j, cell := range row.Cells {
			data[headers[j].Value] = cell.Value
		}
		rows = append(rows, data)
	}
	return rows, nil
}

func (tl *TestLogger) Write(p []byte) (n int, err error) {
	if tl.T != nil {
		tl.T.Logf("%s", p)
	}
	return len(p), nil
}

// TestFeatures runs the feature files under paths (default "features") and
// fails t when any scenario fails.
func TestFeatures(t *testing.T, suite *TestSuite, paths ...string) {
	suite.T = t
	if len(paths) == 0 {
		paths = []string{"features"}
	}
	opts := godog.Options{
		Format:    "pretty",
		Output:    colors.Colored(&TestLogger{T: t}),
		Paths:     paths,
		Strict:    true,
		Randomize: 0,
	}

	status := godog.TestSuite{
		Name:                "inkpost",
		ScenarioInitializer: suite.InitializeScenario,
		Options:             &opts,
	}.Run()
	if status != 0 {
		t.Fatalf("feature suite failed with status %d", status)
	}
}
