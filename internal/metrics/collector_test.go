package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/auth"
)

func TestObserveOperation(t *testing.T) {
	c := NewCollector()

	c.ObserveOperation(auth.OpLogin, nil, 20*time.Millisecond)
	c.ObserveOperation(auth.OpLogin, errors.New("bad credentials"), 5*time.Millisecond)
	c.ObserveOperation(auth.OpLogin, errors.New("bad credentials"), 5*time.Millisecond)
	c.ObserveOperation(auth.OpLogout, nil, time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("Login", "success")))
	require.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("Login", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("Logout", "success")))
	require.Equal(t, 2, testutil.CollectAndCount(c.duration))
}

func TestHandler(t *testing.T) {
	c := NewCollector()
	c.ObserveOperation(auth.OpRefreshToken, nil, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `gqlsession_operations_total{operation="RefreshToken",outcome="success"} 1`)
}

func TestCollectorAsStoreObserver(t *testing.T) {
	var _ auth.Observer = NewCollector()
}
