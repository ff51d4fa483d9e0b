package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/bz888/solver/internal/api"
	"github.com/bz888/solver/internal/language"
	"github.com/bz888/solver/internal/prefs"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamPrinterWritesDeltas(t *testing.T) {
	var out bytes.Buffer
	p := newStreamPrinter(&out, false)

	p.Render(api.Snapshot{Phase: api.Loading, Text: api.LoadingText, Loading: true})
	p.Render(api.Snapshot{Phase: api.Streaming, Text: "def f():", Loading: true})
	p.Render(api.Snapshot{Phase: api.Streaming, Text: "def f():\n    return 1", Loading: true})
	p.Render(api.Snapshot{Phase: api.Complete, Text: "def f():\n    return 1"})

	assert.Equal(t, "def f():\n    return 1\n", out.String())
}

func TestStreamPrinterWholeResult(t *testing.T) {
	var out bytes.Buffer
	p := newStreamPrinter(&out, false)

	p.Render(api.Snapshot{Phase: api.Loading, Text: api.LoadingText, Loading: true})
	p.Render(api.Snapshot{Phase: api.Complete, Text: api.NoSolution})

	assert.Equal(t, api.NoSolution+"\n", out.String())
}

func TestStreamPrinterFailureAfterPartial(t *testing.T) {
	var out bytes.Buffer
	p := newStreamPrinter(&out, false)

	p.Render(api.Snapshot{Phase: api.Loading, Loading: true})
	p.Render(api.Snapshot{Phase: api.Streaming, Text: "partial", Loading: true})
	p.Render(api.Snapshot{Phase: api.Failed, Text: "Error generating solution: network error: reset"})

	assert.Equal(t, "partial\n", out.String())
}

func TestSolveCommand(t *testing.T) {
	var gotLang, gotTask string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTask = r.FormValue("task")
		gotLang = r.FormValue("programming_language")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "func twoSum() {}")
	}))
	defer srv.Close()

	prefsPath := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, prefs.SaveLanguage(prefs.NewFileStore(prefsPath), language.Go))

	pterm.DisableOutput()
	defer pterm.EnableOutput()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"solve",
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--endpoint", srv.URL + "/upload",
		"--prefs", prefsPath,
		"--text", "Two Sum",
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Equal(t, "Two Sum", gotTask)
	assert.Equal(t, "go", gotLang)
	assert.Equal(t, "func twoSum() {}\n", out.String())
}

func TestRootServeValidatesServerConfig(t *testing.T) {
	t.Setenv("SOLVER_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	t.Cleanup(func() { withServer = false })

	rootCmd.SetArgs([]string{
		"--serve",
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--prefs", filepath.Join(t.TempDir(), "prefs.yaml"),
	})
	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY is required")
}

func TestSolveCommandAudio(t *testing.T) {
	t.Cleanup(func() { solveFlags.audio, solveFlags.lang = "", "" })
	solveFlags.text = ""

	recogniser := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "audio/x-flac; rate=16000", r.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"result":[]}`+"\n"+
			`{"result":[{"alternative":[{"transcript":"merge two sorted lists","confidence":0.8}],"final":true}]}`+"\n")
	}))
	defer recogniser.Close()

	var gotTask string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTask = r.FormValue("task")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "def merge(a, b): ...")
	}))
	defer srv.Close()

	wavPath := filepath.Join(t.TempDir(), "question.wav")
	f, err := os.Create(wavPath)
	require.NoError(t, err)
	encoder := wav.NewEncoder(f, 16000, 16, 1, 1)
	require.NoError(t, encoder.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           make([]int, 1600),
		SourceBitDepth: 16,
	}))
	require.NoError(t, encoder.Close())
	require.NoError(t, f.Close())

	pterm.DisableOutput()
	defer pterm.EnableOutput()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"solve",
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--endpoint", srv.URL + "/upload",
		"--prefs", filepath.Join(t.TempDir(), "prefs.yaml"),
		"--lang", "python",
		"--speech-endpoint", recogniser.URL,
		"--audio", wavPath,
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Equal(t, "merge two sorted lists", gotTask)
	assert.Equal(t, "def merge(a, b): ...\n", out.String())
}
