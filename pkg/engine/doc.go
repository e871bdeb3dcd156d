/*
Package engine reconciles the snapshots of all cluster nodes into one view.

Every tick the engine probes the local node, broadcasts the result as a
snapshot, forgets snapshots older than the cache TTL and merges the ones left.
Only snapshots carrying the highest configuration version take part in the
merge, so nodes running an outdated configuration cannot override newer data.
Snapshots of the same version are merged in ascending order of the sending
node's name, later ones winning on conflicting attributes.

A node we received a fresh snapshot from is considered running, whatever that
snapshot says about it.
*/
package engine
