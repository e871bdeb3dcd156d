package models

// ClusterView is implemented by anything that publishes a merged cluster view
type ClusterView interface {
	Cluster() *Cluster
	Request(command string) string
}
