package devserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/csheth/mdtranslate/internal/api"
	"github.com/csheth/mdtranslate/internal/chunk"
	"github.com/csheth/mdtranslate/internal/llm"
	"github.com/csheth/mdtranslate/internal/stream"
)

type dictTranslator struct {
	words   map[string]string
	release chan struct{}
}

func (d *dictTranslator) Name() string { return "dict" }

func (d *dictTranslator) Translate(ctx context.Context, req llm.Request, onDelta llm.DeltaHandler) (string, error) {
	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	out, ok := d.words[req.Text]
	if !ok {
		return "", errors.New("no translation for " + req.Text)
	}
	if onDelta != nil {
		if err := onDelta(out); err != nil {
			return "", err
		}
	}
	return out, nil
}

func setupTestServer(t *testing.T, translator llm.Translator) (*httptest.Server, *Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := openTestStore(t)
	srv := New(Config{Store: store, Translator: translator, Concurrency: 2, ContextChars: 200, Model: "test-model"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return ts, srv
}

func dial(t *testing.T, ts *httptest.Server, documentID, connectionID string) stream.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := stream.WebSocketDialer{BaseURL: ts.URL}.Dial(ctx, documentID, connectionID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntilComplete reads events up to and including complete.
func readUntilComplete(conn stream.Conn) ([]stream.Event, error) {
	var events []stream.Event
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			return events, err
		}
		ev, err := stream.Decode(raw)
		if err != nil {
			return events, err
		}
		events = append(events, ev)
		if ev.Kind == stream.KindComplete {
			return events, nil
		}
	}
}

func collect(t *testing.T, conn stream.Conn) []stream.Event {
	t.Helper()
	type result struct {
		events []stream.Event
		err    error
	}
	done := make(chan result, 1)
	go func() {
		events, err := readUntilComplete(conn)
		done <- result{events, err}
	}()
	select {
	case r := <-done:
		require.NoError(t, r.err)
		return r.events
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for complete")
		return nil
	}
}

func TestTranslateStreamsAndPersists(t *testing.T) {
	translator := &dictTranslator{words: map[string]string{
		"# One\ntext\n": "# 一\n文本\n",
		"# Two\nmore\n": "# 二\n更多\n",
	}}
	ts, _ := setupTestServer(t, translator)
	client := api.New(ts.URL, ts.Client())
	ctx := context.Background()

	manifest, err := client.Submit(ctx, api.SubmitRequest{Content: "# One\ntext\n# Two\nmore\n", Title: "Numbers", Direction: api.DirectionEnToZh})
	require.NoError(t, err)
	require.NotEmpty(t, manifest.DocumentID)
	require.Len(t, manifest.Chunks, 2)
	require.Equal(t, "pending", manifest.Chunks[0].Status)
	require.Nil(t, manifest.Chunks[0].TranslatedText)

	events := collect(t, dial(t, ts, manifest.DocumentID, "viewer-1"))
	store := chunk.NewStore()
	store.ReplaceAll(api.ToChunks(manifest.Chunks))
	sawProcessing := false
	for _, ev := range events {
		if ev.Kind != stream.KindChunkUpdate {
			continue
		}
		if ev.Status == chunk.StatusProcessing {
			sawProcessing = true
		}
		require.NoError(t, store.Upsert(ev.Index, ev.Patch()))
	}
	require.True(t, sawProcessing)
	require.Equal(t, "# 一\n文本\n# 二\n更多\n", store.Assemble())
	require.True(t, store.Progress().Done())

	doc, err := client.GetDocument(ctx, manifest.DocumentID)
	require.NoError(t, err)
	require.Equal(t, "Numbers", doc.Title)
	require.Equal(t, "completed", doc.Status)
	require.Equal(t, "# 一\n文本\n# 二\n更多\n", doc.TranslatedContent)
	require.True(t, doc.HasTranslation())

	docs, err := client.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.True(t, docs[0].IsTranslated)

	// A viewer arriving after the run only gets the completion.
	again := collect(t, dial(t, ts, manifest.DocumentID, "viewer-2"))
	require.Len(t, again, 1)
	require.Equal(t, stream.KindComplete, again[0].Kind)

	require.NoError(t, client.DeleteDocument(ctx, manifest.DocumentID))
	_, err = client.GetDocument(ctx, manifest.DocumentID)
	require.ErrorIs(t, err, api.ErrHistoryLoad)
}

func TestFailedChunkReportsErrorAndRunCompletes(t *testing.T) {
	translator := &dictTranslator{words: map[string]string{"# Two\nok\n": "# 二\n好\n"}}
	ts, _ := setupTestServer(t, translator)
	client := api.New(ts.URL, ts.Client())

	manifest, err := client.Submit(context.Background(), api.SubmitRequest{Content: "# One\nbroken\n# Two\nok\n"})
	require.NoError(t, err)
	events := collect(t, dial(t, ts, manifest.DocumentID, "c"))

	final := map[int]chunk.Status{}
	for _, ev := range events {
		if ev.Kind == stream.KindChunkUpdate {
			final[ev.Index] = ev.Status
		}
	}
	require.Equal(t, chunk.StatusError, final[0])
	require.Equal(t, chunk.StatusCompleted, final[1])

	doc, err := client.GetDocument(context.Background(), manifest.DocumentID)
	require.NoError(t, err)
	require.Equal(t, "# 二\n好\n", doc.TranslatedContent)
	require.Equal(t, "error", doc.Chunks[0].Status)
	require.Contains(t, doc.Title, "Document ")
}

func TestEveryViewerReceivesEvents(t *testing.T) {
	translator := &dictTranslator{words: map[string]string{"Hello\nWorld": "你好\n世界"}, release: make(chan struct{})}
	ts, srv := setupTestServer(t, translator)
	client := api.New(ts.URL, ts.Client())

	manifest, err := client.Submit(context.Background(), api.SubmitRequest{Content: "Hello\nWorld"})
	require.NoError(t, err)

	first := dial(t, ts, manifest.DocumentID, "tab-1")
	second := dial(t, ts, manifest.DocumentID, "tab-2")
	require.Eventually(t, func() bool { return srv.hub.viewerCount(manifest.DocumentID) == 2 }, 2*time.Second, 5*time.Millisecond)
	close(translator.release)

	var wg sync.WaitGroup
	results := make([][]stream.Event, 2)
	errs := make([]error, 2)
	for i, conn := range []stream.Conn{first, second} {
		wg.Add(1)
		go func(i int, conn stream.Conn) {
			defer wg.Done()
			results[i], errs[i] = readUntilComplete(conn)
		}(i, conn)
	}
	wg.Wait()
	for i, events := range results {
		require.NoError(t, errs[i])
		require.GreaterOrEqual(t, len(events), 2)
		last := events[len(events)-1]
		require.Equal(t, stream.KindComplete, last.Kind)
		beforeLast := events[len(events)-2]
		require.Equal(t, "你好\n世界", beforeLast.TranslatedText)
		require.Equal(t, chunk.StatusCompleted, beforeLast.Status)
	}
}

func TestStreamUnknownDocumentClosesWith4004(t *testing.T) {
	ts, _ := setupTestServer(t, llm.NewMock(0))
	conn := dial(t, ts, "missing", "c")
	_, err := conn.ReadMessage()
	require.Error(t, err)
	require.True(t, websocket.IsCloseError(err, CloseDocumentNotFound), "unexpected error: %v", err)
}

func TestSettingsThroughClient(t *testing.T) {
	ts, _ := setupTestServer(t, llm.NewMock(0))
	client := api.New(ts.URL, ts.Client())
	ctx := context.Background()

	settings, err := client.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "test-model", settings.ModelName)
	require.Equal(t, 3, settings.ChunkCount)

	settings.ChunkCount = 1
	settings.AutoSaveHistory = false
	require.NoError(t, client.SaveSettings(ctx, settings))

	settings, err = client.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, settings.ChunkCount)
	require.False(t, settings.AutoSaveHistory)

	manifest, err := client.Submit(ctx, api.SubmitRequest{Content: "# A\nx\n# B\ny\n"})
	require.NoError(t, err)
	require.Len(t, manifest.Chunks, 1, "num_chunks setting drives the splitter")
}

func TestRejectsMalformedRequests(t *testing.T) {
	ts, _ := setupTestServer(t, llm.NewMock(0))
	resp, err := ts.Client().Post(ts.URL+"/api/translate", "application/json", http.NoBody)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = ts.Client().Post(ts.URL+"/api/settings", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
