// Package docker discovers architecture from running Docker containers.
//
// Containers opt in with "archmerge.*" labels. Each labelled container
// describes one container of a software system; containers are grouped into
// workspace documents by their "archmerge.workspace" label and merged like
// any file-based source document.
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
