package query

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/schubergphilis/clumon/internal/models"
)

// Client talks to a query server
type Client struct {
	Path    string
	Timeout time.Duration
}

// NewClient returns a client for the socket at path
func NewClient(path string) *Client {
	return &Client{Path: path, Timeout: 5 * time.Second}
}

// Do sends command and returns the response without the terminating empty line
func (c *Client) Do(ctx context.Context, command string) (string, error) {
	var d net.Dialer
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	conn, err := d.DialContext(ctx, "unix", c.Path)
	if err != nil {
		return "", fmt.Errorf("connect to %s: %w", c.Path, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return "", fmt.Errorf("send %s: %w", command, err)
	}

	var b strings.Builder
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			return b.String(), nil
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return "", fmt.Errorf("read response: connection closed before end of response")
}

// Get returns the merged cluster view, nil when the daemon has none
func (c *Client) Get(ctx context.Context) (*models.Cluster, error) {
	resp, err := c.Do(ctx, "GET")
	if err != nil {
		return nil, err
	}
	return models.ParseDump(resp)
}
