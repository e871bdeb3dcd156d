/*
Package transport keeps a TCP connection to every known peer of the cluster
and exchanges framed messages with them.

All peers listen on the same cluster port. A message is an opaque byte string
terminated on the wire by two newline bytes, so a payload may never contain
"\n\n" itself.

Usage:

	t := transport.New("node1", "10.0.0.1:6666")
	t.Handle(func(from string, frame []byte) {
		fmt.Printf("%s sent %q\n", from, frame)
	})
	if err := t.Start(); err != nil {
		return err
	}
	t.SetPeers([]string{"node1", "node2", "node3"})
	t.Enqueue([]byte("hello"))
	...
	t.Stop()

Enqueue delivers the message to the local handler right away, then sends it to
every connected peer. Delivery is at most once; nothing is retried after a
connection drops.

Peers are identified by the IP address they connect from. An incoming
connection is matched against the resolved addresses of the known peers, and
closed when nothing matches. This identity can be spoofed by anyone able to
send from a peer's address.
*/
package transport
