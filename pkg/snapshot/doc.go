/*
Package snapshot implements the tree exchanged between cluster monitors.

A snapshot is a tree of tagged nodes carrying string attributes. Children are
keyed by their own "name" attribute, so two trees describing the same cluster
can be merged: attributes of the other tree overwrite ours and children with
the same name are merged recursively.

 msg := snapshot.New("msg")
 msg.Set("type", "clusterupdate")
 data, err := msg.Serialize()      // single line of XML, never contains '\n'
 tree, err := snapshot.Parse(data) // only msg/cluster/objects/node/service are accepted

Serialized trees never contain a newline byte, which keeps them safe inside
the "\n\n" delimited frames of the transport.
*/
package snapshot
