package knowledge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkflow-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return NewClient(config.KnowledgeConfig{
		BaseURL:   baseURL,
		QueryPath: "/backendApi/know/queryDocuments",
		AuthToken: "token-123",
		Timeout:   5 * time.Second,
		TopN:      8,
	})
}

func TestQueryDocuments(t *testing.T) {
	var gotQuestion, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuestion = r.URL.Query().Get("question")
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "1", r.URL.Query().Get("classifyList"))
		_, _ = w.Write([]byte(`{"code":200,"data":[{"text":"原始"}],"clean_data":[{"text":"清洗后"}]}`))
	}))
	defer srv.Close()

	docs, err := testClient(srv.URL).QueryDocuments(context.Background(), "合同违约怎么处理")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "清洗后", docs[0].Text, "clean_data 优先")
	assert.Equal(t, "合同违约怎么处理", gotQuestion)
	assert.Equal(t, "token-123", gotAuth)
}

func TestQueryDocumentsFallsBackToData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":[{"text":"原始"}]}`))
	}))
	defer srv.Close()

	docs, err := testClient(srv.URL).QueryDocuments(context.Background(), "问题")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "原始", docs[0].Text)
}

func TestQueryDocumentsNonSuccessCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":500,"message":"检索服务不可用"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).QueryDocuments(context.Background(), "问题")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "检索服务不可用")
}

func TestQueryDocumentsEmptyQuestion(t *testing.T) {
	docs, err := testClient("http://127.0.0.1:0").QueryDocuments(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, docs)
}

func TestQueryQuietlySwallowsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	docs := testClient(srv.URL).QueryQuietly(context.Background(), "问题")
	assert.Nil(t, docs)
}

func TestBuildRefs(t *testing.T) {
	docs := []DocItem{
		{Text: " 第一条 "},
		{Text: "第二条"},
		{Text: ""},
		{Text: "第四条"},
	}

	refs := BuildRefs(docs, 2)
	assert.Equal(t, "【1】第一条\n【2】第二条", refs)

	all := BuildRefs(docs, 0)
	assert.Contains(t, all, "【4】第四条")

	assert.Empty(t, BuildRefs(nil, 3))
}
