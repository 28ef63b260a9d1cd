package classifiersvc

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aktamov/davomat/core"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    core.Verdict
		wantErr bool
	}{
		{
			name: "plain json",
			text: `{"approved": true, "confidence": 0.93, "reason": "clear swallow"}`,
			want: core.Verdict{Approved: true, Confidence: 0.93, Reason: "clear swallow"},
		},
		{
			name: "fenced json",
			text: "```json\n{\"approved\": false, \"confidence\": 0.4, \"reason\": \"face not visible\"}\n```",
			want: core.Verdict{Approved: false, Confidence: 0.4, Reason: "face not visible"},
		},
		{
			name:    "prose answer",
			text:    "I cannot tell.",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVerdict(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"approved\":true,\"confidence\":0.91,\"reason\":\"ok\"}"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(&core.Config{Classifier: core.ClassifierConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"}})
	v, err := c.Classify([]byte("video-bytes"), "video/mp4")
	require.NoError(t, err)
	assert.True(t, v.Approved)
	assert.Equal(t, 0.91, v.Confidence)
}

func TestClassifyTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded"}}`))
	}))
	defer srv.Close()

	c := NewClient(&core.Config{Classifier: core.ClassifierConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"}})
	_, err := c.Classify([]byte("video-bytes"), "video/mp4")
	assert.Error(t, err)
}
