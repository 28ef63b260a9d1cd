package intake_test

import (
	"errors"
	"testing"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/intake"
)

type fakeFetcher struct {
	data []byte
	err  error
}

func (f fakeFetcher) DownloadFile(string) ([]byte, error) { return f.data, f.err }

type fakeClassifier struct {
	verdict core.Verdict
	err     error
}

func (f fakeClassifier) Classify([]byte, string) (core.Verdict, error) { return f.verdict, f.err }

func TestPipeline_Verify(t *testing.T) {
	tests := []struct {
		name        string
		fetch       fakeFetcher
		classify    fakeClassifier
		want        intake.Decision
		unavailable bool
	}{
		{
			name:     "approved with high confidence",
			fetch:    fakeFetcher{data: []byte("video")},
			classify: fakeClassifier{verdict: core.Verdict{Approved: true, Confidence: 0.97}},
			want:     intake.Decision{Approved: true, Confidence: 0.97},
		},
		{
			name:     "approved below threshold is downgraded",
			fetch:    fakeFetcher{data: []byte("video")},
			classify: fakeClassifier{verdict: core.Verdict{Approved: true, Confidence: 0.6}},
			want:     intake.Decision{Approved: false, Confidence: 0.6, Reason: "confidence 0.60 below threshold"},
		},
		{
			name:     "rejected",
			fetch:    fakeFetcher{data: []byte("video")},
			classify: fakeClassifier{verdict: core.Verdict{Approved: false, Confidence: 0.9, Reason: "no pill visible"}},
			want:     intake.Decision{Approved: false, Confidence: 0.9, Reason: "no pill visible"},
		},
		{
			name:        "download failure",
			fetch:       fakeFetcher{err: errors.New("boom")},
			unavailable: true,
		},
		{
			name:        "classifier failure",
			fetch:       fakeFetcher{data: []byte("video")},
			classify:    fakeClassifier{err: errors.New("boom")},
			unavailable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := intake.NewPipeline(tt.fetch, tt.classify, 0.85, core.NopLogger{})
			got, err := p.Verify("file-1", "video/mp4")
			if tt.unavailable {
				if !errors.Is(err, intake.ErrVerifyUnavailable) {
					t.Fatalf("Verify() error = %v, want ErrVerifyUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Verify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
