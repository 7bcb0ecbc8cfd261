package docker

import (
	"fmt"
	"strings"

	"github.com/shinji-kodama/archmerge/internal/model"
)

// Label key constants define the Docker labels a container carries to
// describe its place in the architecture.
//
// All keys share the "archmerge." prefix to namespace them and avoid
// collisions with labels set by other tools (Docker Compose, VS Code, etc.).
const (
	// LabelPrefix is the common prefix for all archmerge labels.
	LabelPrefix = "archmerge."

	// LabelSystem names the software system the container belongs to.
	// It is the only required label and the one discovery filters on.
	LabelSystem = LabelPrefix + "system"

	// LabelWorkspace groups containers into workspace documents. Containers
	// without it land in the DefaultWorkspace document.
	LabelWorkspace = LabelPrefix + "workspace"

	// LabelContainer is the architecture container name. Defaults to the
	// Compose service name, then to the Docker container name.
	LabelContainer = LabelPrefix + "container"

	LabelDescription = LabelPrefix + "description"

	// LabelTechnology defaults to the container image.
	LabelTechnology = LabelPrefix + "technology"

	// LabelTags is a comma separated tag list.
	LabelTags = LabelPrefix + "tags"

	// LabelUses lists the elements this container uses, comma separated.
	// Each entry is a name, optionally followed by "=" and a description:
	//
	//	"archmerge.uses" = "Database=Reads and writes,Billing"
	LabelUses = LabelPrefix + "uses"
)

// DefaultWorkspace is the document name for containers without a
// LabelWorkspace label.
const DefaultWorkspace = "docker"

// composeServiceLabel is set by Docker Compose on every service container.
const composeServiceLabel = "com.docker.compose.service"

// Uses is one parsed entry of the LabelUses label.
type Uses struct {
	Destination string
	Description string
}

// ElementLabels is the architecture description carried by one container.
type ElementLabels struct {
	Workspace   string
	System      string
	Container   string
	Description string
	Technology  string
	Tags        model.Tags
	Uses        []Uses
}

// ParseLabels reads the architecture labels of a container. Defaults are
// filled in from the container itself: the workspace from DefaultWorkspace,
// the container name from the Compose service or Docker name, and the
// technology from the image.
//
// Returns an error if the system label is missing or blank.
func ParseLabels(info ContainerInfo) (*ElementLabels, error) {
	labels := info.Labels

	system := strings.TrimSpace(labels[LabelSystem])
	if system == "" {
		return nil, fmt.Errorf("container %s: missing required Docker label %s", info.ContainerName, LabelSystem)
	}

	el := &ElementLabels{
		Workspace:   firstNonEmpty(labels[LabelWorkspace], DefaultWorkspace),
		System:      system,
		Container:   firstNonEmpty(labels[LabelContainer], labels[composeServiceLabel], info.ContainerName),
		Description: strings.TrimSpace(labels[LabelDescription]),
		Technology:  firstNonEmpty(labels[LabelTechnology], info.Image),
		Tags:        model.ParseTags(labels[LabelTags]),
		Uses:        ParseUses(labels[LabelUses]),
	}
	if el.Container == "" {
		return nil, fmt.Errorf("container %s: cannot determine a container name", info.ContainerID)
	}
	return el, nil
}

// ParseUses parses the value of a LabelUses label. Blank entries are
// dropped.
func ParseUses(value string) []Uses {
	var uses []Uses
	for _, entry := range strings.Split(value, ",") {
		destination, description, _ := strings.Cut(entry, "=")
		destination = strings.TrimSpace(destination)
		if destination == "" {
			continue
		}
		uses = append(uses, Uses{
			Destination: destination,
			Description: strings.TrimSpace(description),
		})
	}
	return uses
}

// FilterLabel returns the Docker API label filter that selects containers
// carrying an architecture description.
func FilterLabel() string {
	return LabelSystem
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
