package query

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schubergphilis/clumon/internal/models"
)

type fakeView struct {
	cluster *models.Cluster
}

func (f fakeView) Cluster() *models.Cluster {
	return f.cluster.Copy()
}

func (f fakeView) Request(command string) string {
	if command != "GET" {
		return ""
	}
	return f.cluster.Dump()
}

func testCluster() *models.Cluster {
	c := &models.Cluster{
		Name:      "alpha",
		Version:   4,
		MinQuorum: 2,
		Nodes: []*models.Node{
			{Name: "A", Votes: 1, Running: true, InCluster: true},
			{Name: "B", Votes: 1, Running: true, InCluster: true},
		},
		Services: []*models.Service{{Name: "svc1", Autostart: true, Running: true, NodeName: "A"}},
	}
	c.Link()
	return c
}

func startServer(t *testing.T, view models.ClusterView, settings Settings) string {
	path := filepath.Join(t.TempDir(), "clumond.sock")
	s := NewServer(path, view, settings, nil)
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return path
}

func TestGet(t *testing.T) {
	path := startServer(t, fakeView{cluster: testCluster()}, Settings{})

	c, err := NewClient(path).Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, testCluster().Dump(), c.Dump())
	assert.Equal(t, "A", c.Node("A").Services[0].NodeName)
}

func TestGetWithoutView(t *testing.T) {
	path := startServer(t, fakeView{}, Settings{})

	c, err := NewClient(path).Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestUnknownCommand(t *testing.T) {
	path := startServer(t, fakeView{cluster: testCluster()}, Settings{})

	resp, err := NewClient(path).Do(context.Background(), "DELETE")
	require.NoError(t, err)
	assert.Equal(t, "", resp)
}

func TestConcurrentClients(t *testing.T) {
	path := startServer(t, fakeView{cluster: testCluster()}, Settings{MaxConnections: 2, Rate: 1000, Burst: 1000})

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := NewClient(path).Get(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestStaleSocketReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clumond.sock")

	// a crashed daemon leaves its socket file behind
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	ln.(*net.UnixListener).SetUnlinkOnClose(false)
	ln.Close()
	_, err = os.Stat(path)
	require.NoError(t, err)

	s := NewServer(path, fakeView{cluster: testCluster()}, Settings{}, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	_, err = NewClient(path).Get(context.Background())
	assert.NoError(t, err)
}

func TestRefusesRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-socket")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0600))

	s := NewServer(path, fakeView{}, Settings{}, nil)
	assert.Error(t, s.Start())
}

func TestClientNoServer(t *testing.T) {
	_, err := NewClient(filepath.Join(t.TempDir(), "missing.sock")).Get(context.Background())
	assert.Error(t, err)
}
