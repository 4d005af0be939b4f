package cache

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCookiesRoundTrip(t *testing.T) {
	db := openTestDB(t)

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	err := db.SaveCookies("auth.example.com", []*http.Cookie{
		{Name: "refresh_token", Value: "r1", Path: "/graphql", Expires: expires, HttpOnly: true, Secure: true},
		{Name: "lang", Value: "en"},
	})
	require.NoError(t, err)

	cookies, err := db.LoadCookies("auth.example.com")
	require.NoError(t, err)
	require.Len(t, cookies, 2)

	require.Equal(t, "lang", cookies[0].Name)
	require.Equal(t, "/", cookies[0].Path)
	require.True(t, cookies[0].Expires.IsZero())

	require.Equal(t, "refresh_token", cookies[1].Name)
	require.Equal(t, "r1", cookies[1].Value)
	require.Equal(t, "/graphql", cookies[1].Path)
	require.True(t, cookies[1].HttpOnly)
	require.True(t, cookies[1].Secure)
	require.True(t, expires.Equal(cookies[1].Expires))

	other, err := db.LoadCookies("other.example.com")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestSaveCookiesReplacesHost(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveCookies("h", []*http.Cookie{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}))
	require.NoError(t, db.SaveCookies("h", []*http.Cookie{{Name: "b", Value: "3"}}))

	cookies, err := db.LoadCookies("h")
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	require.Equal(t, "3", cookies[0].Value)
}

func TestLoadCookiesSkipsExpired(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveCookies("h", []*http.Cookie{
		{Name: "old", Value: "x", Expires: time.Now().Add(-time.Minute)},
		{Name: "new", Value: "y", Expires: time.Now().Add(time.Minute)},
	}))

	cookies, err := db.LoadCookies("h")
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	require.Equal(t, "new", cookies[0].Name)
}

func TestClearCookies(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveCookies("h", []*http.Cookie{{Name: "a", Value: "1"}}))
	require.NoError(t, db.ClearCookies("h"))

	cookies, err := db.LoadCookies("h")
	require.NoError(t, err)
	require.Empty(t, cookies)
}
