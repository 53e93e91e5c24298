package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniprep/copilot/internal/auth"
	"github.com/uniprep/copilot/internal/i18n"
	"github.com/uniprep/copilot/internal/llm"
	"github.com/uniprep/copilot/internal/model"
	"github.com/uniprep/copilot/internal/store"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// fakeLLM is a chat completion endpoint with a settable reply.
type fakeLLM struct {
	mu      sync.Mutex
	status  int
	reply   string
	prompts []string
}

func (f *fakeLLM) set(status int, reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.reply = status, reply
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func (f *fakeLLM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(req.Messages); n > 0 {
		f.prompts = append(f.prompts, req.Messages[n-1].Content)
	}
	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 && f.status != http.StatusOK {
		w.WriteHeader(f.status)
		fmt.Fprintf(w, `{"error":{"message":%q,"code":%d}}`, f.reply, f.status)
		return
	}
	resp, _ := json.Marshal(map[string]any{
		"id": "cmpl", "object": "chat.completion", "created": 1, "model": "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": f.reply},
			"finish_reason": "stop",
		}},
	})
	_, _ = w.Write(resp)
}

type testEnv struct {
	t      *testing.T
	router chi.Router
	llm    *fakeLLM
	store  *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	provider := &fakeLLM{reply: `{"sections":[{"title":"Intro","content":"Trees are graphs."}]}`}
	llmSrv := httptest.NewServer(provider)
	t.Cleanup(llmSrv.Close)

	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tokens, err := auth.NewIssuer(auth.Config{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"})
	require.NoError(t, err)
	client := llm.New(llm.Config{BaseURL: llmSrv.URL, APIKey: "sk-test", Model: "test-model"})

	h, err := New(s, client, tokens, model.ServerConfig{Env: "development", MaxUploadBytes: 1 << 20})
	require.NoError(t, err)
	r := chi.NewRouter()
	h.Routes(r)
	return &testEnv{t: t, router: r, llm: provider, store: s}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req, token)
}

func (e *testEnv) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[messageBody](t, rec).Message
}

func (e *testEnv) register(email string) tokenResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": email, "password": "secret123", "name": "Asha",
		"university": "VTU", "branch": "CSE", "semester": 5,
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[tokenResponse](e.t, rec)
}

func (e *testEnv) subject(token, name string) model.Subject {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/subjects", token, map[string]string{"name": name, "code": "CS301"})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Subject](e.t, rec)
}

func TestPingAndUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pong!", rec.Body.String())

	rec = env.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", messageOf(t, rec))

	rec = env.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "UniPrep Copilot")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[healthResponse](t, rec)
	assert.Equal(t, "OK", h.Status)
	assert.True(t, h.Database.OK)
	assert.NotEmpty(t, h.Database.SchemaVersion)
	assert.True(t, h.LLM.Configured)
	assert.Equal(t, "test-model", h.LLM.Model)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	tokens := env.register("asha@example.com")
	require.NotNil(t, tokens.User)
	assert.Equal(t, "Asha", tokens.User.Name)
	assert.NotEmpty(t, tokens.AccessToken)

	rec := env.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "ASHA@example.com", "password": "x", "name": "Other",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", messageOf(t, rec))

	rec = env.do(http.MethodPost, "/api/auth/register", "", map[string]any{"email": "b@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required", messageOf(t, rec))

	rec = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "asha@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", messageOf(t, rec))

	rec = env.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token, authorization denied", messageOf(t, rec))

	rec = env.do(http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is not valid", messageOf(t, rec))

	rec = env.do(http.MethodGet, "/api/auth/me", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[model.User](t, rec)
	assert.Equal(t, "asha@example.com", me.Email)
	assert.NotContains(t, rec.Body.String(), "secret123")

	// Refresh via header, then reuse of the rotated token is refused.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.Header.Set("X-Refresh-Token", tokens.RefreshToken)
	rec = env.send(req, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decode[tokenResponse](t, rec)
	assert.Nil(t, rotated.User)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	rec = env.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": tokens.RefreshToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Refresh token mismatch", messageOf(t, rec))

	rec = env.do(http.MethodPost, "/api/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Refresh token required", messageOf(t, rec))

	rec = env.do(http.MethodPost, "/api/auth/logout", rotated.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodPost, "/api/auth/refresh?refreshToken="+rotated.RefreshToken, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid refresh token", messageOf(t, rec))
}

func TestErrorsAreLocalized(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Accept-Language", "hi")
	rec := env.send(req, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEqual(t, "No token, authorization denied", messageOf(t, rec))
}

func TestSubjectOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice@example.com").AccessToken
	bob := env.register("bob@example.com").AccessToken
	sub := env.subject(alice, "Data Structures")

	rec := env.do(http.MethodGet, "/api/subjects/"+sub.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Subject not found", messageOf(t, rec))

	rec = env.do(http.MethodDelete, "/api/subjects/"+sub.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/api/subjects", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.Subject](t, rec))

	rec = env.do(http.MethodPut, "/api/subjects/"+sub.ID, alice, map[string]string{"name": "DSA"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[model.Subject](t, rec)
	assert.Equal(t, "DSA", updated.Name)
	assert.Equal(t, "CS301", updated.Code)

	rec = env.do(http.MethodPost, "/api/subjects", alice, map[string]string{"code": "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateNotes(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("asha@example.com").AccessToken
	sub := env.subject(token, "Data Structures")

	rec := env.do(http.MethodPost, "/api/context", token, map[string]any{
		"subjectId": sub.ID, "type": "syllabus", "title": "Syllabus",
		"content": "Unit 1: Binary trees and heaps", "keywords": "trees, heaps",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ctxItem := decode[model.Context](t, rec)
	assert.Equal(t, []string{"trees", "heaps"}, ctxItem.Metadata.Keywords)

	rec = env.do(http.MethodPost, "/api/content/notes", token, map[string]any{"subjectId": sub.ID, "topic": "Trees"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	content := decode[model.GeneratedContent](t, rec)
	assert.Equal(t, model.ContentNotes, content.Type)
	assert.Equal(t, "Study Notes: Trees", content.Title)
	assert.Equal(t, []string{ctxItem.ID}, content.ContextUsed)
	assert.NotEmpty(t, content.StyleID)
	assert.Equal(t, "medium", content.Metadata.Depth)
	assert.False(t, content.Metadata.Fallback)
	notes, ok := content.Content.(model.NotesPayload)
	require.True(t, ok)
	assert.Equal(t, "Intro", notes.Sections[0].Title)

	prompt := env.llm.lastPrompt()
	assert.Contains(t, prompt, "Binary trees and heaps")
	assert.Contains(t, prompt, "Data Structures")

	// The default style was created and made active on first use.
	rec = env.do(http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"activeStyleProfile"`)
	assert.Contains(t, rec.Body.String(), "Default Style")

	rec = env.do(http.MethodGet, "/api/content/"+sub.ID+"?type=notes", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.GeneratedContent](t, rec), 1)

	rec = env.do(http.MethodGet, "/api/content/"+sub.ID+"?type=essay", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/content/notes", token, map[string]any{"subjectId": sub.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "topic is required", messageOf(t, rec))
}

func TestGenerateFallback(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("asha@example.com").AccessToken
	sub := env.subject(token, "Networks")
	env.llm.set(http.StatusOK, "Here are your slides, sorry no JSON")

	rec := env.do(http.MethodPost, "/api/content/ppt", token, map[string]any{"subjectId": sub.ID, "topic": "TCP"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	content := decode[model.GeneratedContent](t, rec)
	assert.True(t, content.Metadata.Fallback)
	assert.Equal(t, 10, content.Metadata.SlideCount)
	ppt, ok := content.Content.(model.PPTPayload)
	require.True(t, ok)
	require.Len(t, ppt.Slides, 1)
	assert.Equal(t, "TCP", ppt.Slides[0].Title)
	assert.Equal(t, "Here are your slides, sorry no JSON", ppt.Slides[0].SpeakerNotes)
}

func TestGenerateLLMErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("asha@example.com").AccessToken
	sub := env.subject(token, "Networks")

	env.llm.set(http.StatusTooManyRequests, "slow down")
	rec := env.do(http.MethodPost, "/api/content/report", token, map[string]any{"subjectId": sub.ID, "topic": "TCP"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, messageOf(t, rec), "rate limit")

	env.llm.set(http.StatusPaymentRequired, "no credits")
	rec = env.do(http.MethodPost, "/api/content/report", token, map[string]any{"subjectId": sub.ID, "topic": "TCP"})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = env.do(http.MethodGet, "/api/content/"+sub.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.GeneratedContent](t, rec))
}

func TestExamPlanning(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("asha@example.com").AccessToken
	sub := env.subject(token, "Operating Systems")

	rec := env.do(http.MethodGet, "/api/exam/plans/"+sub.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/exam/planner", token, map[string]any{"subjectId": sub.ID, "examDate": "2030-01-15"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please generate exam blueprint first", messageOf(t, rec))

	env.llm.set(http.StatusOK, "```json\n{\"units\":[{\"name\":\"Scheduling\",\"weightage\":40,\"difficulty\":\"medium\",\"frequency\":3,\"importantTopics\":[\"Round robin\"]}]}\n```")
	rec = env.do(http.MethodPost, "/api/exam/blueprint", token, map[string]any{"subjectId": sub.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan := decode[model.ExamPlan](t, rec)
	require.NotNil(t, plan.Blueprint)
	require.Len(t, plan.Blueprint.Units, 1)
	assert.Equal(t, "Scheduling", plan.Blueprint.Units[0].Name)

	rec = env.do(http.MethodPost, "/api/exam/planner", token, map[string]any{"subjectId": sub.ID, "examDate": "next week"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.llm.set(http.StatusOK, `{"days":[{"date":"2030-01-14","topics":["Scheduling"],"tasks":["Revise"],"hours":3}],"bufferDays":1,"mockTestDays":["2030-01-13"]}`)
	rec = env.do(http.MethodPost, "/api/exam/planner", token, map[string]any{"subjectId": sub.ID, "examDate": "2030-01-15", "hoursPerDay": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	plan = decode[model.ExamPlan](t, rec)
	require.NotNil(t, plan.RevisionPlan)
	assert.Len(t, plan.RevisionPlan.Days, 1)
	assert.Equal(t, "2030-01-15", plan.ExamDate.Format("2006-01-02"))
	assert.Contains(t, env.llm.lastPrompt(), "Scheduling")

	env.llm.set(http.StatusOK, `{"questions":[{"type":"short","question":"Define a process.","answer":"A program in execution."}]}`)
	rec = env.do(http.MethodPost, "/api/exam/mock-paper", token, map[string]any{"subjectId": sub.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	paper := decode[model.GeneratedContent](t, rec)
	assert.Equal(t, "Mock Paper: Operating Systems", paper.Title)
	assert.Equal(t, "Mock Exam", paper.Topic)

	env.llm.set(http.StatusOK, "not json")
	rec = env.do(http.MethodPost, "/api/exam/rapid-sheets", token, map[string]any{"subjectId": sub.ID, "topics": []string{"Paging", "Deadlocks"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sheet := decode[model.GeneratedContent](t, rec)
	assert.Equal(t, "Rapid Revision Sheet: Paging, Deadlocks", sheet.Title)
	rs, ok := sheet.Content.(model.RevisionSheetPayload)
	require.True(t, ok)
	assert.Equal(t, []string{"not json"}, rs.KeyPoints)
}

func TestContextUploads(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("asha@example.com").AccessToken
	sub := env.subject(token, "Compilers")

	rec := env.do(http.MethodPost, "/api/context", token, map[string]any{
		"subjectId": sub.ID, "type": "notes", "title": "Scanned notes",
		"content": "[Cloudinary File] notes.pdf\nURL: https://files.example.com/notes.pdf",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[model.Context](t, rec)
	assert.Equal(t, "https://files.example.com/notes.pdf", c.FileURL)

	upload := func(name, body string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("subjectId", sub.ID))
		require.NoError(t, mw.WriteField("type", "pyq"))
		require.NoError(t, mw.WriteField("keywords", "lexer, parser"))
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, body)
		require.NoError(t, err)
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/context", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return env.send(req, token)
	}

	rec = upload("pyq-2024.txt", "Q1. Explain LR parsing.")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c = decode[model.Context](t, rec)
	assert.Equal(t, "Q1. Explain LR parsing.", c.Content)
	assert.Equal(t, "pyq-2024.txt", c.Title)
	assert.Equal(t, []string{"lexer", "parser"}, c.Metadata.Keywords)

	rec = upload("payload.exe", "MZ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, messageOf(t, rec), "payload.exe")

	rec = env.do(http.MethodGet, "/api/context/"+sub.ID+"/search?keyword=LR", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Context](t, rec), 1)

	rec = env.do(http.MethodGet, "/api/context/"+sub.ID+"/search", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/context", token, map[string]any{
		"subjectId": sub.ID, "type": "video", "title": "x", "content": "y",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid context type", messageOf(t, rec))
}

func TestStyles(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("asha@example.com").AccessToken

	rec := env.do(http.MethodGet, "/api/styles/defaults", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.StylePreset](t, rec), 3)

	rec = env.do(http.MethodPost, "/api/styles", token, map[string]any{"name": "Crisp", "sections": []string{"Answer"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	st := decode[model.AnswerStyle](t, rec)
	assert.Equal(t, model.ToneFormalExam, st.Tone)

	rec = env.do(http.MethodPut, "/api/styles/"+st.ID, token, map[string]any{"tone": "shouty"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid tone", messageOf(t, rec))

	rec = env.do(http.MethodPut, "/api/styles/"+st.ID+"/activate", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"activeStyleProfileId":"`+st.ID+`"`)
}

func TestQuizAttemptGrading(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("asha@example.com").AccessToken
	other := env.register("bob@example.com").AccessToken
	sub := env.subject(token, "Data Structures")

	rec := env.do(http.MethodPost, "/api/quiz", token, map[string]any{
		"subjectId": sub.ID, "topic": "Trees", "question": "Which tree keeps keys ordered?",
		"options": []string{"Binary Search Tree", "Heap"}, "correctAnswer": "Binary Search Tree",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	quiz := decode[model.Quiz](t, rec)

	rec = env.do(http.MethodPost, "/api/quiz/attempt", token, map[string]any{"quizId": quiz.ID, "userAnswer": "  binary search TREE ", "timeTaken": 12})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[attemptResponse](t, rec)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, "Binary Search Tree", res.CorrectAnswer)

	rec = env.do(http.MethodPost, "/api/quiz/attempt", token, map[string]any{"quizId": quiz.ID, "userAnswer": "Heap"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, decode[attemptResponse](t, rec).IsCorrect)

	rec = env.do(http.MethodPost, "/api/quiz/attempt", other, map[string]any{"quizId": quiz.ID, "userAnswer": "Heap"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/api/quiz/analytics/"+sub.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":2,"correct":1,"accuracy":50,"topicBreakdown":[{"topic":"Trees","total":2,"correct":1,"accuracy":50}]}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/sessions/start", token, map[string]any{"subjectId": sub.ID, "mode": "quiz"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sess := decode[model.Session](t, rec)
	rec = env.do(http.MethodPut, "/api/sessions/"+sess.ID+"/end", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[model.Session](t, rec).EndTime)

	rec = env.do(http.MethodPost, "/api/sessions/start", token, map[string]any{"mode": "napping"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/users/progress", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decode[progressResponse](t, rec)
	assert.Equal(t, 2, progress.Quiz.TotalQuestions)
	assert.Equal(t, 1, progress.Quiz.CorrectAnswers)
	assert.Equal(t, 1, progress.TotalSessions)
	assert.Equal(t, 1, progress.StudyStreak)
}

func TestCommunity(t *testing.T) {
	env := newTestEnv(t)
	author := env.register("author@example.com").AccessToken

	rec := env.do(http.MethodPost, "/api/community/posts", "", map[string]any{"type": "notes", "title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/community/posts", author, map[string]any{
		"type": "notes", "title": "Heap cheatsheet",
		"content":  map[string]any{"sections": []map[string]string{{"title": "Heaps", "content": "Complete binary trees."}}},
		"metadata": map[string]any{"subject": "Data Structures", "topic": "Heaps"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode[model.CommunityPost](t, rec)
	assert.Equal(t, "VTU", post.Metadata.University)
	assert.Equal(t, 5, post.Metadata.Semester)

	rec = env.do(http.MethodGet, "/api/community/posts?topic=heap&semester=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.CommunityPost](t, rec)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Content)

	rec = env.do(http.MethodGet, "/api/community/posts/"+post.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	viewed := decode[model.CommunityPost](t, rec)
	assert.Equal(t, 1, viewed.ViewCount)
	assert.NotNil(t, viewed.Content)

	voter := env.register("voter@example.com").AccessToken
	vote := func(v string) *httptest.ResponseRecorder {
		return env.do(http.MethodPost, "/api/community/posts/"+post.ID+"/vote", voter, map[string]string{"voteType": v})
	}
	assert.JSONEq(t, `{"upvotes":1,"downvotes":0}`, vote("upvote").Body.String())
	assert.JSONEq(t, `{"upvotes":1,"downvotes":0}`, vote("upvote").Body.String())
	assert.JSONEq(t, `{"upvotes":0,"downvotes":1}`, vote("downvote").Body.String())
	assert.Equal(t, http.StatusBadRequest, vote("sideways").Code)

	rec = env.do(http.MethodPost, "/api/community/posts/"+post.ID+"/comment", voter, map[string]string{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(http.MethodPost, "/api/community/posts/"+post.ID+"/comment", voter, map[string]string{"content": "Thanks!"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = env.do(http.MethodGet, "/api/community/posts/"+post.ID+"/comments", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	comments := decode[[]model.Comment](t, rec)
	require.Len(t, comments, 1)
	assert.Equal(t, "Asha", comments[0].Author.Name)

	sub := env.subject(voter, "DSA")
	rec = env.do(http.MethodPost, "/api/community/posts/"+post.ID+"/clone", voter, map[string]string{"subjectId": sub.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cloned := decode[model.GeneratedContent](t, rec)
	assert.Equal(t, "Heap cheatsheet (Cloned)", cloned.Title)
	assert.Equal(t, sub.ID, cloned.SubjectID)
	assert.NotNil(t, cloned.Content)

	rec = env.do(http.MethodPost, "/api/community/posts/"+post.ID+"/clone", author, map[string]string{"subjectId": sub.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for i := 1; i <= model.ReportThreshold; i++ {
		rec = env.do(http.MethodPost, "/api/community/posts/"+post.ID+"/report", voter, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.True(t, strings.Contains(messageOf(t, rec), fmt.Sprint(model.ReportThreshold)))

	rec = env.do(http.MethodGet, "/api/community/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.CommunityPost](t, rec))
}

func TestPanicRecovery(t *testing.T) {
	h := &Handler{config: model.ServerConfig{Env: "development"}}
	rec := httptest.NewRecorder()
	h.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "boom", body.Message)
	assert.NotEmpty(t, body.Stack)
}
