package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"authorsite/internal/content"
	"authorsite/internal/entity"
	"authorsite/internal/fallback"
	"authorsite/internal/platform/backend"
	"authorsite/internal/platform/backend/mocks"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUploader struct {
	url string
	err error
}

func (s stubUploader) Upload(_ context.Context, _ string, content io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, content)
	return s.url, s.err
}

func newTestMux(t *testing.T, doer backend.Doer, secret string) (*http.ServeMux, *content.Accessor) {
	t.Helper()
	accessor := content.NewAccessor(doer, time.Minute)
	mux := http.NewServeMux()
	NewHandler(doer, accessor, stubUploader{url: "https://cdn.example.com/x.jpg"}, secret).Register(mux)
	return mux, accessor
}

func serve(mux http.Handler, method, target, token string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestListRoutes_DegradeOnFailure(t *testing.T) {
	fallbackGallery, _ := json.Marshal(fallback.GalleryImages())
	fallbackBooks, _ := json.Marshal(fallback.Books())

	tests := []struct {
		name     string
		target   string
		token    string
		path     string
		resp     *backend.Response
		err      error
		expected string
	}{
		{
			name:     "books network error",
			target:   "/api/books",
			path:     "/api/books",
			err:      errors.New("connection refused"),
			expected: string(fallbackBooks),
		},
		{
			name:     "books timeout",
			target:   "/api/books",
			path:     "/api/books",
			err:      backend.ErrTimeout,
			expected: string(fallbackBooks),
		},
		{
			name:     "public gallery backend 500",
			target:   "/api/gallery",
			path:     "/api/gallery",
			resp:     &backend.Response{StatusCode: http.StatusInternalServerError, Body: []byte(`{"message":"boom"}`)},
			expected: string(fallbackGallery),
		},
		{
			name:     "admin gallery degrades to empty",
			target:   "/api/gallery",
			token:    "tok",
			path:     "/api/gallery/admin",
			resp:     &backend.Response{StatusCode: http.StatusForbidden, Body: []byte(`{"message":"nope"}`)},
			expected: `[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			mockBackend := mocks.NewMockDoer(ctrl)
			mux, _ := newTestMux(t, mockBackend, "")

			mockBackend.EXPECT().
				Do(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, req backend.Request) (*backend.Response, error) {
					assert.Equal(t, tt.path, req.Path)
					return tt.resp, tt.err
				})

			rr := serve(mux, http.MethodGet, tt.target, tt.token, nil)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, tt.expected, rr.Body.String())
		})
	}
}

func TestListBlog_FallbackPostsArePublished(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockBackend := mocks.NewMockDoer(ctrl)
	mux, _ := newTestMux(t, mockBackend, "")

	mockBackend.EXPECT().Do(gomock.Any(), gomock.Any()).Return(nil, errors.New("dial tcp: refused"))

	rr := serve(mux, http.MethodGet, "/api/blog", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var posts []entity.BlogPost
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &posts))
	require.Len(t, posts, 3)
	for _, p := range posts {
		assert.True(t, p.Published)
	}
}

func TestListBlog_DerivesPublished(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockBackend := mocks.NewMockDoer(ctrl)
	mux, _ := newTestMux(t, mockBackend, "")

	mockBackend.EXPECT().Do(gomock.Any(), gomock.Any()).Return(&backend.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"posts":[{"_id":"p1","status":"Published","views":12},{"_id":"p2","status":"Draft"}]}`),
	}, nil)

	rr := serve(mux, http.MethodGet, "/api/blog", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"posts":[
		{"_id":"p1","status":"Published","published":true,"views":12},
		{"_id":"p2","status":"Draft","published":false}
	]}`, rr.Body.String())
}

func TestSingleItemRoutes_PropagateFailures(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		resp         *backend.Response
		err          error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "backend 404 mirrored",
			target:       "/api/books/missing",
			resp:         &backend.Response{StatusCode: http.StatusNotFound, Body: []byte(`{"message":"Book not found"}`)},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"message":"Book not found"}`,
		},
		{
			name:         "network error is a generic 500",
			target:       "/api/blog/p1",
			err:          errors.New("connection reset"),
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"success":false,"error":{"code":"INTERNAL_ERROR","message":"Failed to reach backend"}}`,
		},
		{
			name:         "timeout is a 504",
			target:       "/api/books/featured",
			err:          backend.ErrTimeout,
			expectedCode: http.StatusGatewayTimeout,
			expectedBody: `{"success":false,"error":{"code":"GATEWAY_TIMEOUT","message":"Backend did not respond in time"}}`,
		},
		{
			name:         "reviews list is not degraded",
			target:       "/api/reviews",
			resp:         &backend.Response{StatusCode: http.StatusServiceUnavailable, Body: []byte(`{"message":"down"}`)},
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: `{"message":"down"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			mockBackend := mocks.NewMockDoer(ctrl)
			mux, _ := newTestMux(t, mockBackend, "")

			mockBackend.EXPECT().Do(gomock.Any(), gomock.Any()).Return(tt.resp, tt.err)

			rr := serve(mux, http.MethodGet, tt.target, "", nil)

			assert.Equal(t, tt.expectedCode, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
		})
	}
}

func TestItemRoutes_EscapeIDs(t *testing.T) {
	tests := []struct {
		method, target, token, expectedPath string
	}{
		{http.MethodGet, "/api/books/..%2Forders", "", "/api/books/..%2Forders"},
		{http.MethodDelete, "/api/gallery/x%3Fall=1", "tok", "/api/gallery/x%3Fall=1"},
		{http.MethodGet, "/api/blog/a%2Fb", "", "/api/blog/a%2Fb"},
		{http.MethodPut, "/api/reviews/r%231", "tok", "/api/reviews/r%231"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			mockBackend := mocks.NewMockDoer(ctrl)
			mux, _ := newTestMux(t, mockBackend, "")

			mockBackend.EXPECT().
				Do(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, req backend.Request) (*backend.Response, error) {
					assert.Equal(t, tt.expectedPath, req.Path)
					assert.Empty(t, req.Query)
					return &backend.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
				})

			rr := serve(mux, tt.method, tt.target, tt.token, strings.NewReader(`{}`))
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}
}

func TestBlogWrite_TranslatesBothWays(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockBackend := mocks.NewMockDoer(ctrl)
	mux, _ := newTestMux(t, mockBackend, "")

	mockBackend.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req backend.Request) (*backend.Response, error) {
			assert.Equal(t, http.MethodPut, req.Method)
			assert.Equal(t, "/api/blog/p1", req.Path)
			assert.Equal(t, "tok", req.Token)
			payload := req.Body.(map[string]any)
			assert.Equal(t, "Draft", payload["status"])
			assert.NotContains(t, payload, "published")
			assert.Equal(t, json.Number("3"), payload["views"])
			return &backend.Response{StatusCode: http.StatusOK, Body: []byte(`{"_id":"p1","title":"T","status":"Draft"}`)}, nil
		})

	rr := serve(mux, http.MethodPut, "/api/blog/p1", "tok", strings.NewReader(`{"title":"T","published":false,"views":3}`))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"_id":"p1","title":"T","status":"Draft","published":false}`, rr.Body.String())
}

func TestBlogWrite_PublishedFlagFromForms(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockBackend := mocks.NewMockDoer(ctrl)
	mux, _ := newTestMux(t, mockBackend, "")

	mockBackend.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req backend.Request) (*backend.Response, error) {
			payload := req.Body.(map[string]any)
			assert.Equal(t, "Published", payload["status"])
			assert.NotContains(t, payload, "published")
			return &backend.Response{StatusCode: http.StatusCreated, Body: []byte(`{"_id":"p2","status":"Published"}`)}, nil
		})

	rr := serve(mux, http.MethodPost, "/api/blog", "tok", strings.NewReader(`{"title":"T","published":"true"}`))
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(mux, http.MethodPost, "/api/blog", "tok", strings.NewReader(`{"title":"T","published":"soon"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"field":"published"`)
}

func TestBlogWrite_RejectsNonObjectBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mux, _ := newTestMux(t, mocks.NewMockDoer(ctrl), "")

	rr := serve(mux, http.MethodPost, "/api/blog", "tok", strings.NewReader(`[1,2]`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWrites_RequireBearer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mux, _ := newTestMux(t, mocks.NewMockDoer(ctrl), "")

	for _, tc := range []struct{ method, target string }{
		{http.MethodPost, "/api/books"},
		{http.MethodPut, "/api/books/b1"},
		{http.MethodDelete, "/api/blog/p1"},
		{http.MethodPost, "/api/gallery"},
		{http.MethodPut, "/api/reviews/r1"},
		{http.MethodPost, "/api/orders"},
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/upload"},
	} {
		rr := serve(mux, tc.method, tc.target, "", strings.NewReader(`{}`))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.method+" "+tc.target)
	}
}

func TestBookWrite_ExpiresCachedBooks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockBackend := mocks.NewMockDoer(ctrl)
	mux, accessor := newTestMux(t, mockBackend, "")
	books := []byte(`[{"_id":"b1","title":"Cached"}]`)

	gomock.InOrder(
		mockBackend.EXPECT().Do(gomock.Any(), backend.Request{Method: http.MethodGet, Path: "/api/books"}).
			Return(&backend.Response{StatusCode: http.StatusOK, Body: books}, nil),
		mockBackend.EXPECT().Do(gomock.Any(), gomock.Any()).
			Return(&backend.Response{StatusCode: http.StatusOK, Body: []byte(`{"_id":"b1","title":"Renamed"}`)}, nil),
		mockBackend.EXPECT().Do(gomock.Any(), backend.Request{Method: http.MethodGet, Path: "/api/books"}).
			Return(&backend.Response{StatusCode: http.StatusOK, Body: books}, nil),
	)

	first, err := accessor.Get(context.Background(), content.Books)
	require.NoError(t, err)
	assert.Equal(t, content.SourceBackend, first.Source)

	rr := serve(mux, http.MethodPut, "/api/books/b1", "tok", strings.NewReader(`{"title":"Renamed"}`))
	require.Equal(t, http.StatusOK, rr.Code)

	again, err := accessor.Get(context.Background(), content.Books)
	require.NoError(t, err)
	assert.Equal(t, content.SourceBackend, again.Source)
}

func TestSubmitReview_AlwaysUnapproved(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockBackend := mocks.NewMockDoer(ctrl)
	mux, _ := newTestMux(t, mockBackend, "")

	mockBackend.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req backend.Request) (*backend.Response, error) {
			payload := req.Body.(map[string]any)
			assert.Equal(t, false, payload["approved"])
			assert.NotContains(t, payload, "isVerified")
			return &backend.Response{StatusCode: http.StatusCreated, Body: []byte(`{"_id":"r9"}`)}, nil
		})

	rr := serve(mux, http.MethodPost, "/api/reviews", "", strings.NewReader(`{"name":"Z","rating":5,"comment":"Loved it","approved":true,"isVerified":true}`))

	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestRevalidate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("missing tag", func(t *testing.T) {
		mux, _ := newTestMux(t, mocks.NewMockDoer(ctrl), "")
		rr := serve(mux, http.MethodPost, "/api/revalidate", "", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown tag", func(t *testing.T) {
		mux, _ := newTestMux(t, mocks.NewMockDoer(ctrl), "")
		rr := serve(mux, http.MethodPost, "/api/revalidate?tag=nope", "", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("secret enforced", func(t *testing.T) {
		mux, _ := newTestMux(t, mocks.NewMockDoer(ctrl), "s3cret")
		rr := serve(mux, http.MethodPost, "/api/revalidate?tag=books", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		rr = serve(mux, http.MethodPost, "/api/revalidate?tag=books&secret=s3cret", "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, true, body["revalidated"])
		assert.Equal(t, "books", body["tag"])
	})
}

func TestUpload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mux, _ := newTestMux(t, mocks.NewMockDoer(ctrl), "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "cover.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("jpeg bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"url":"https://cdn.example.com/x.jpg"}`, rr.Body.String())

	rr = serve(mux, http.MethodPost, "/api/upload", "tok", strings.NewReader("not multipart"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTranslateRecords_LeavesNonRecordsAlone(t *testing.T) {
	assert.Equal(t, []byte(`not json`), translateRecords([]byte(`not json`)))
	assert.JSONEq(t, `{"message":"ok"}`, string(translateRecords([]byte(`{"message":"ok"}`))))
	assert.JSONEq(t, `{"_id":"p","status":"published","published":true}`, string(translateRecords([]byte(`{"_id":"p","status":"published"}`))))
}
