package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyScored(t *testing.T) {
	var gotBody predictRequest
	var gotAPIKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("x-api-key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"documents":[{"class_probabilities":{"ai":0.83,"human":0.17}}]}`))
	}))
	defer server.Close()

	client := NewGPTZeroClient(server.URL, "test-key", 5*time.Second)
	result := client.Classify(context.Background(), "some document text")

	assert.Equal(t, StatusScored, result.Status)
	assert.InDelta(t, 0.83, result.AIProbability, 0.0001)
	assert.InDelta(t, 0.17, result.HumanProbability, 0.0001)
	assert.Equal(t, "some document text", gotBody.Document)
	assert.False(t, gotBody.Multilingual)
	assert.Equal(t, "test-key", gotAPIKey)
}

func TestClassifyRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewGPTZeroClient(server.URL, "", 5*time.Second)
	result := client.Classify(context.Background(), "text")

	assert.Equal(t, StatusRateLimited, result.Status)
}

func TestClassifyServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewGPTZeroClient(server.URL, "", 5*time.Second)
	result := client.Classify(context.Background(), "text")

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Detail, "500")
}

func TestClassifyTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewGPTZeroClient(server.URL, "", time.Second)
	result := client.Classify(context.Background(), "text")

	assert.Equal(t, StatusError, result.Status)
	assert.NotEmpty(t, result.Detail)
}

func TestClassifyEmptyDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"documents":[]}`))
	}))
	defer server.Close()

	client := NewGPTZeroClient(server.URL, "", 5*time.Second)
	result := client.Classify(context.Background(), "text")

	assert.Equal(t, StatusError, result.Status)
}

func TestNewGPTZeroClientDefaultURL(t *testing.T) {
	client := NewGPTZeroClient("", "", time.Second)
	assert.Equal(t, DefaultAPIURL, client.apiURL)
}
