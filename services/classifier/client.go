// Package classifiersvc implements core.VideoClassifier against a hosted
// generative-AI API: the video is sent inline with a fixed instruction and
// the model answers with a small JSON verdict.
package classifiersvc

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/aktamov/davomat/core"
)

const prompt = `You are verifying a daily medication-intake video.
Decide whether the video clearly shows the person swallowing the medication.
Answer with JSON only: {"approved": bool, "confidence": 0..1, "reason": "short explanation"}`

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

var _ core.VideoClassifier = (*Client)(nil) // interface compliance check

func NewClient(conf *core.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(conf.Classifier.BaseURL, "/"),
		apiKey:  conf.Classifier.APIKey,
		model:   conf.Classifier.Model,
		http:    &http.Client{Timeout: conf.Classifier.Timeout},
	}
}

type (
	generateRequest struct {
		Contents []content `json:"contents"`
	}
	content struct {
		Parts []part `json:"parts"`
	}
	part struct {
		Text       string      `json:"text,omitempty"`
		InlineData *inlineData `json:"inline_data,omitempty"`
	}
	inlineData struct {
		MimeType string `json:"mime_type"`
		Data     string `json:"data"`
	}

	generateResponse struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	verdictPayload struct {
		Approved   bool    `json:"approved"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	}
)

func (c *Client) Classify(data []byte, contentType string) (core.Verdict, error) {
	if contentType == "" {
		contentType = "video/mp4"
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: contentType,
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
				{Text: prompt},
			},
		}},
	})
	if err != nil {
		return core.Verdict{}, errors.Wrap(err, "encoding classify request")
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	resp, err := c.http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return core.Verdict{}, errors.Wrap(err, "calling classifier")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Verdict{}, errors.Wrap(err, "reading classifier response")
	}

	var gr generateResponse
	if err = json.Unmarshal(raw, &gr); err != nil {
		return core.Verdict{}, errors.Wrap(err, "decoding classifier response")
	}
	if gr.Error != nil {
		return core.Verdict{}, errors.Errorf("classifier error %d: %s", gr.Error.Code, gr.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return core.Verdict{}, errors.Errorf("classifier status %d: %s", resp.StatusCode, raw)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return core.Verdict{}, errors.New("classifier returned no candidates")
	}

	return parseVerdict(gr.Candidates[0].Content.Parts[0].Text)
}

// parseVerdict extracts the JSON verdict from the model's answer, tolerating
// a markdown code fence around it.
func parseVerdict(text string) (core.Verdict, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var v verdictPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &v); err != nil {
		return core.Verdict{}, errors.Wrap(err, "parsing classifier verdict")
	}
	return core.Verdict{Approved: v.Approved, Confidence: v.Confidence, Reason: v.Reason}, nil
}
