package cli

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestSimpleProgress(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		steps []int64
		want  []string
	}{
		{name: "known total", total: 4, steps: []int64{1, 2}, want: []string{"100.0%", "4/4 records"}},
		{name: "unknown total", total: 0, steps: []int64{3, 7}, want: []string{"7 records"}},
		{name: "never moves backwards", total: 10, steps: []int64{6, 2}, want: []string{"6/10 records"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			progress := NewProgressReporter(buf, "records")
			progress.Start(tt.total)
			for _, step := range tt.steps {
				progress.Update(step)
			}
			if tt.name != "never moves backwards" {
				progress.Finish()
			}

			output := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("output %q does not contain %q", output, want)
				}
			}
		})
	}
}

func TestSimpleProgressError(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "records")

	progress.Start(100)
	progress.Error(errors.New("storage closed"))

	if !strings.Contains(buf.String(), "Error: storage closed") {
		t.Errorf("output %q does not contain the error", buf.String())
	}
}

func TestSimpleProgressConcurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "")
	progress.Start(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				progress.Update(int64(start*100 + j))
			}
		}(i)
	}
	wg.Wait()
	progress.Finish()

	if !strings.Contains(buf.String(), "1000/1000 items") {
		t.Errorf("final output missing: %q", buf.String())
	}
}

func TestNewProgressReporterNilWriter(t *testing.T) {
	progress := NewProgressReporter(nil, "records")
	if progress.(*SimpleProgress).writer == nil {
		t.Fatal("nil writer should default to stderr")
	}
}
