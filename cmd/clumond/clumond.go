package main

import (
	"time"

	"github.com/schubergphilis/clumon/internal/cmd"
	"github.com/schubergphilis/clumon/internal/config"
)

// version is set during makefile
var version string
var versionBuild string
var versionSha string

// Initialize package
func init() {
	config.Version = version
	config.VersionBuild = versionBuild
	config.VersionSha = versionSha
	config.StartTime = time.Now()
}

func main() {
	cmd.Execute()
}
