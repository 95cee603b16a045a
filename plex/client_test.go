package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/plexshelf/session"
)

// newTestClient returns a client whose media server and cloud service are
// both served by handler. The session starts with a token and host set.
func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	ctx := context.Background()
	sess := session.New(session.NewMemoryStore(), zerolog.Nop())
	require.NoError(t, sess.Set(ctx, session.ParamToken, "test-token"))
	require.NoError(t, sess.Set(ctx, session.ParamHostURL, server.URL))
	require.NoError(t, sess.Set(ctx, session.ParamMachineID, "abc123"))

	opts = append([]Option{WithCloudURL(server.URL + "/api/v2")}, opts...)
	client, err := NewClient(sess, zerolog.Nop(), opts...)
	require.NoError(t, err)

	return client, server
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("requires session", func(t *testing.T) {
		_, err := NewClient(nil, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires a session")
	})

	t.Run("invalid cloud URL", func(t *testing.T) {
		sess := session.New(session.NewMemoryStore(), logger)
		_, err := NewClient(sess, logger, WithCloudURL("not a url"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid cloud URL")
	})

	t.Run("defaults and options", func(t *testing.T) {
		sess := session.New(session.NewMemoryStore(), logger)
		client, err := NewClient(sess, logger,
			WithClientIdentifier("my-client"),
			WithCloudURL("https://cloud.example.com/api/"),
			WithPageSize(50),
			WithConcurrency(0),
			WithTimeout(5*time.Second),
		)
		require.NoError(t, err)
		assert.Equal(t, "my-client", client.clientID)
		assert.Equal(t, "https://cloud.example.com/api", client.cloudURL)
		assert.Equal(t, 50, client.sanitizer.defaultPageSize)
		assert.Equal(t, 1, client.concurrency)
		assert.Same(t, sess, client.Session())
	})
}

func TestRequestSendsTokenAndClientID(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get(HeaderToken))
		assert.Equal(t, "test-token", r.URL.Query().Get(HeaderToken))
		assert.Equal(t, DefaultClientIdentifier, r.Header.Get(HeaderClientIdentifier))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		writeJSON(w, map[string]any{"ok": true})
	})

	res, err := client.Request(context.Background(), http.MethodGet, server.URL+"/identity", CallOptions{})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.True(t, res.Get("ok").Bool())
}

func TestRequestErrorStatusWithJSONBody(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]any{"error": "missing"})
	})

	res, err := client.Request(context.Background(), http.MethodGet, server.URL+"/nope", CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.False(t, res.OK())
}

func TestRequestEmptyBody(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	res, err := client.Request(context.Background(), http.MethodPut, server.URL+"/playlists/1", CallOptions{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(res.Body))
}

func TestRequestUnparseableErrorBody(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>Internal Server Error</html>"))
	})

	_, err := client.Request(context.Background(), http.MethodGet, server.URL+"/broken", CallOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "bad request or invalid data")
}

func TestRequestTransportError(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	target := server.URL + "/gone"
	server.Close()

	_, err := client.Request(context.Background(), http.MethodGet, target, CallOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.MethodGet, transportErr.Method)
	assert.NotContains(t, transportErr.URL, "test-token")
}

func TestRequestInvalidOptions(t *testing.T) {
	var called atomic.Bool
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
	})

	_, err := client.Request(context.Background(), http.MethodGet, server.URL, CallOptions{Options: Paginate(0, 10)})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.False(t, called.Load())
}

func TestTotalSize(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "0", q.Get(ParamContainerStart))
		assert.Equal(t, "0", q.Get(ParamContainerSize))
		writeJSON(w, map[string]any{"MediaContainer": map[string]any{"totalSize": 42, "size": 0}})
	})

	size, err := client.TotalSize(context.Background(), server.URL+"/library/sections/1/all")
	require.NoError(t, err)
	assert.Equal(t, 42, size)
}

func TestTotalSizeMissingField(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"MediaContainer": map[string]any{"size": 0}})
	})

	_, err := client.TotalSize(context.Background(), server.URL+"/library/sections/1/all")
	require.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "MediaContainer.totalSize")
}

func TestTotalSizeErrorStatus(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]any{"errors": []map[string]any{{"message": "Unauthorized"}}})
	})

	_, err := client.TotalSize(context.Background(), server.URL+"/library/sections/1/all")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "Unauthorized", statusErr.Message)
	assert.True(t, statusErr.IsUnauthorized())
}

func TestThumbURL(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	t.Run("defaults", func(t *testing.T) {
		got, err := client.ThumbURL("/library/metadata/1/thumb/123", 0, 0)
		require.NoError(t, err)
		assert.Equal(t,
			server.URL+"/photo/:/transcode?width=200&height=301&url=%2Flibrary%2Fmetadata%2F1%2Fthumb%2F123&X-Plex-Token=test-token",
			got)
	})

	t.Run("explicit size", func(t *testing.T) {
		got, err := client.ThumbURL("/t", 100, 150)
		require.NoError(t, err)
		assert.True(t, strings.Contains(got, "width=100&height=150"))
	})

	t.Run("no token", func(t *testing.T) {
		require.NoError(t, client.Session().Clear(context.Background(), session.ParamToken))
		got, err := client.ThumbURL("/t", 0, 0)
		require.NoError(t, err)
		assert.NotContains(t, got, HeaderToken)
	})
}

func TestNoServer(t *testing.T) {
	sess := session.New(session.NewMemoryStore(), zerolog.Nop())
	client, err := NewClient(sess, zerolog.Nop())
	require.NoError(t, err)

	_, err = client.ThumbURL("/t", 0, 0)
	assert.ErrorIs(t, err, ErrNoServer)

	_, err = client.Libraries(context.Background())
	assert.ErrorIs(t, err, ErrNoServer)

	_, err = client.Playlists(context.Background(), RequestOptions{})
	assert.ErrorIs(t, err, ErrNoServer)
}

func TestLogin(t *testing.T) {
	var signinToken atomic.Value
	handler := func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/users/signin.json":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Empty(t, r.Header.Get(HeaderToken))
			assert.False(t, r.URL.Query().Has(HeaderToken))
			assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "user@example.com", r.FormValue("login"))
			assert.Equal(t, "secret", r.FormValue("password"))
			writeJSON(w, map[string]any{
				"username":  "alice",
				"thumb":     "https://plex.tv/users/1/avatar",
				"authToken": "new-token",
			})
		case "/api/v2/resources":
			signinToken.Store(r.Header.Get(HeaderToken))
			writeJSON(w, []map[string]any{
				{"name": "phone", "product": "Plex for iOS", "clientIdentifier": "phone-1"},
				{
					"name":             "nas",
					"product":          ProductMediaServer,
					"clientIdentifier": "machine-1",
					"connections": []map[string]any{
						{"uri": "https://10-0-0-2.example.plex.direct:32400"},
						{"uri": "https://relay.example.com"},
					},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}

	client, _ := newTestClient(t, handler)
	sess := client.Session()
	require.NoError(t, sess.ResetAll(context.Background()))

	account, err := client.Login(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", account.GetDisplayName())

	snap := sess.Snapshot()
	assert.Equal(t, "new-token", snap.Token)
	assert.Equal(t, "alice", snap.Name)
	assert.Equal(t, "https://plex.tv/users/1/avatar", snap.Avatar)
	assert.Equal(t, "machine-1", snap.MachineID)
	assert.Equal(t, "https://10-0-0-2.example.plex.direct:32400", snap.HostURL)
	assert.Equal(t, "new-token", signinToken.Load())
}

func TestLoginRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]any{
			"errors": []map[string]any{{"code": 1001, "message": "User could not be authenticated"}},
		})
	})
	require.NoError(t, client.Session().ResetAll(context.Background()))

	_, err := client.Login(context.Background(), "user@example.com", "wrong")
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.True(t, authErr.IsUnauthorized())
	assert.Equal(t, "User could not be authenticated", authErr.Message)

	_, ok := client.Session().Get(session.ParamToken)
	assert.False(t, ok)
}

func TestLoginWithoutServerClearsSignIn(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/users/signin.json":
			writeJSON(w, map[string]any{"username": "alice", "thumb": "avatar", "authToken": "new-token"})
		case "/api/v2/resources":
			writeJSON(w, []map[string]any{{"name": "tv", "product": "Plex for Android (TV)"}})
		}
	})
	sess := client.Session()
	require.NoError(t, sess.ResetAll(context.Background()))

	account, err := client.Login(context.Background(), "user@example.com", "secret")
	require.ErrorIs(t, err, ErrServerNotFound)
	assert.Nil(t, account)
	assert.Equal(t, session.Parameters{}, sess.Snapshot())
}

func TestDiscoverServerNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"name": "tv", "product": "Plex for Android (TV)"}})
	})

	_, err := client.DiscoverServer(context.Background())
	assert.ErrorIs(t, err, ErrServerNotFound)
}

func TestLogout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	require.NoError(t, client.Logout(context.Background()))
	assert.Equal(t, session.Parameters{}, client.Session().Snapshot())
}

func TestLibraries(t *testing.T) {
	counts := map[string]int{"1": 120, "2": 7, "3": 0, "4": 33}

	var inFlight, maxInFlight atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/library/sections" {
			writeJSON(w, map[string]any{"MediaContainer": map[string]any{
				"size": 4,
				"Directory": []map[string]any{
					{"key": "1", "title": "Movies", "type": "movie"},
					{"key": "2", "title": "Shows", "type": "show"},
					{"key": "3", "title": "Music", "type": "artist"},
					{"key": "4", "title": "Docs", "type": "movie"},
				},
			}})
			return
		}

		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)

		key := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/library/sections/"), "/all")
		writeJSON(w, map[string]any{"MediaContainer": map[string]any{"totalSize": counts[key]}})
	}, WithConcurrency(2))

	libraries, err := client.Libraries(context.Background())
	require.NoError(t, err)
	require.Len(t, libraries, 4)

	for i, key := range []string{"1", "2", "3", "4"} {
		assert.Equal(t, key, libraries[i].Key)
		assert.Equal(t, counts[key], libraries[i].TotalSize)
	}
	assert.LessOrEqual(t, maxInFlight.Load(), int32(2))
}

func TestLibrariesCountFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/library/sections" {
			writeJSON(w, map[string]any{"MediaContainer": map[string]any{
				"Directory": []map[string]any{{"key": "1", "title": "Movies"}},
			}})
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	})

	_, err := client.Libraries(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "failed to count library Movies")
}

func TestMovies(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/sections/1/all", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "50", q.Get(ParamContainerStart))
		assert.Equal(t, "50", q.Get(ParamContainerSize))
		assert.Equal(t, "year:desc", q.Get(ParamSort))
		assert.Equal(t, "Action", q.Get("genre"))

		writeJSON(w, map[string]any{"MediaContainer": map[string]any{
			"size":      1,
			"totalSize": 300,
			"Metadata": []map[string]any{{
				"ratingKey": "14277",
				"title":     "Heat",
				"year":      1995,
				"Genre":     []map[string]any{{"tag": "Action"}, {"tag": "Crime"}},
			}},
		}})
	})

	opts := Paginate(2, 50).WithSort("year:desc").WithFilter("genre", "Action")
	container, err := client.Movies(context.Background(), "1", opts)
	require.NoError(t, err)
	assert.Equal(t, 300, container.TotalSize)
	require.Len(t, container.Metadata, 1)
	assert.Equal(t, "Heat", container.Metadata[0].Title)
	assert.True(t, container.Metadata[0].HasGenre("crime"))
}

func TestLibraryFilterValues(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/sections/1/genre", r.URL.Path)
		writeJSON(w, map[string]any{"MediaContainer": map[string]any{
			"Directory": []map[string]any{{"key": "22", "title": "Action"}},
		}})
	})

	container, err := client.LibraryFilterValues(context.Background(), "1", "genre")
	require.NoError(t, err)
	require.Len(t, container.Directory, 1)
	assert.Equal(t, "Action", container.Directory[0].Title)
}

func TestAddPlaylistItem(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		query  url.Values
	)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path, query = r.Method, r.URL.Path, r.URL.Query()
		mu.Unlock()
		writeJSON(w, map[string]any{"MediaContainer": map[string]any{
			"size":     1,
			"Metadata": []map[string]any{{"ratingKey": "29271", "title": "Favourites", "leafCount": 3}},
		}})
	})

	container, err := client.AddPlaylistItem(context.Background(), "29271", "14277")
	require.NoError(t, err)
	require.Len(t, container.Metadata, 1)
	assert.Equal(t, 3, container.Metadata[0].LeafCount)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/playlists/29271/items", path)
	assert.Equal(t, "server://abc123/com.plexapp.plugins.library/library/metadata/14277", query.Get("uri"))
	assert.Equal(t, "1", query.Get("includeExternalMedia"))
}

func TestMovePlaylistItem(t *testing.T) {
	tests := []struct {
		name    string
		pos     Position
		wantKey string
		wantErr error
	}{
		{name: "default after", pos: "", wantKey: "after"},
		{name: "before", pos: PositionBefore, wantKey: "before"},
		{name: "invalid", pos: "sideways", wantErr: ErrInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPut, r.Method)
				assert.Equal(t, "/playlists/5/items/10/move", r.URL.Path)
				assert.Equal(t, "11", r.URL.Query().Get(tt.wantKey))
				writeJSON(w, map[string]any{"MediaContainer": map[string]any{"size": 2}})
			})

			_, err := client.MovePlaylistItem(context.Background(), "5", "10", "11", tt.pos)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPlaylistLifecycle(t *testing.T) {
	var calls []string
	var mu sync.Mutex
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, fmt.Sprintf("%s %s", r.Method, r.URL.Path))
		mu.Unlock()

		q := r.URL.Query()
		switch {
		case r.Method == http.MethodPost:
			assert.Equal(t, "Weekend", q.Get("title"))
			assert.Equal(t, "0", q.Get("smart"))
			assert.Equal(t, "video", q.Get("type"))
			writeJSON(w, map[string]any{"MediaContainer": map[string]any{
				"Metadata": []map[string]any{{"ratingKey": "77", "title": "Weekend", "playlistType": "video"}},
			}})
		case r.Method == http.MethodPut:
			assert.Equal(t, "Long Weekend", q.Get("title"))
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			_, _ = io.WriteString(w, `{"MediaContainer":{"size":0}}`)
		}
	})

	ctx := context.Background()
	created, err := client.CreatePlaylist(ctx, "Weekend", "")
	require.NoError(t, err)
	require.Len(t, created.Metadata, 1)
	assert.Equal(t, "77", created.Metadata[0].RatingKey)

	_, err = client.UpdatePlaylist(ctx, "77", map[string]string{"title": "Long Weekend"})
	require.NoError(t, err)

	_, err = client.RemovePlaylistItem(ctx, "77", "3")
	require.NoError(t, err)

	require.NoError(t, client.DeletePlaylist(ctx, "77"))

	assert.Equal(t, []string{
		"POST /playlists",
		"PUT /playlists/77",
		"DELETE /playlists/77/items/3",
		"DELETE /playlists/77",
	}, calls)
}
