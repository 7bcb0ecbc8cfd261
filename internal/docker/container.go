// container.go turns labelled Docker containers into workspace documents.
//
// Discovery has two halves: listing containers through the Docker API
// (ListLabelledContainers) and a pure conversion of the listing into
// documents (BuildDocuments). Only the first needs a daemon.
package docker

import (
	"context"
	"sort"
	"strings"

	// types.Container is the struct returned by ContainerList.
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"go.uber.org/zap"

	"github.com/shinji-kodama/archmerge/internal/merge"
	"github.com/shinji-kodama/archmerge/internal/model"
)

// ContainerInfo is the part of a Docker container listing that discovery
// needs, decoupled from the SDK types.
type ContainerInfo struct {
	ContainerID string `json:"containerId"`

	// ContainerName is the Docker container name without the leading "/".
	ContainerName string `json:"containerName"`

	// ServiceName is the Docker Compose service, empty outside Compose.
	ServiceName string `json:"serviceName,omitempty"`

	Image  string            `json:"image"`
	Status string            `json:"status"`
	Labels map[string]string `json:"labels"`
}

// ListLabelledContainers returns every container, running or stopped, that
// carries the LabelSystem label. Filtering happens server side.
func ListLabelledContainers(ctx context.Context, cli ContainerLister) ([]ContainerInfo, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", FilterLabel())),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, containerToInfo(c))
	}
	return result, nil
}

// containerToInfo converts a Docker API Container struct to ContainerInfo.
// Docker reports names with a leading "/", which is stripped.
func containerToInfo(c types.Container) ContainerInfo {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	return ContainerInfo{
		ContainerID:   c.ID,
		ContainerName: name,
		ServiceName:   c.Labels[composeServiceLabel],
		Image:         c.Image,
		Status:        c.State,
		Labels:        c.Labels,
	}
}

// GroupContainersByWorkspace groups containers by their LabelWorkspace
// value, DefaultWorkspace when the label is absent.
func GroupContainersByWorkspace(containers []ContainerInfo) map[string][]ContainerInfo {
	groups := make(map[string][]ContainerInfo)
	for _, c := range containers {
		name := firstNonEmpty(c.Labels[LabelWorkspace], DefaultWorkspace)
		groups[name] = append(groups[name], c)
	}
	return groups
}

// BuildDocuments converts a container listing into one document per
// workspace, ordered by workspace name.
//
// Every container becomes an architecture container of the software system
// named by its labels. Replicas (several Docker containers with the same
// system and container name) collapse into one element. LabelUses entries
// become relationships when the destination names an element of the same
// document; other entries are logged and dropped. Containers with invalid
// labels are logged and skipped.
func BuildDocuments(containers []ContainerInfo, logger *zap.Logger) []*model.Document {
	if logger == nil {
		logger = zap.NewNop()
	}

	groups := GroupContainersByWorkspace(containers)
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	docs := make([]*model.Document, 0, len(names))
	for _, name := range names {
		docs = append(docs, buildDocument(name, groups[name], logger))
	}
	return docs
}

func buildDocument(name string, containers []ContainerInfo, logger *zap.Logger) *model.Document {
	parsed := make([]*ElementLabels, 0, len(containers))
	for _, c := range containers {
		el, err := ParseLabels(c)
		if err != nil {
			logger.Warn("skipping container with invalid labels", zap.String("container", c.ContainerName), zap.Error(err))
			continue
		}
		parsed = append(parsed, el)
	}

	// Listing order is not stable across daemon calls.
	sort.SliceStable(parsed, func(i, j int) bool {
		if parsed[i].System != parsed[j].System {
			return parsed[i].System < parsed[j].System
		}
		return parsed[i].Container < parsed[j].Container
	})

	m := model.NewModel()
	type edge struct {
		source *model.Container
		uses   []Uses
	}
	var edges []edge

	for _, el := range parsed {
		system := m.SoftwareSystemWithName(el.System)
		if system == nil {
			// The name was just checked, so AddSoftwareSystem cannot fail.
			system, _ = m.AddSoftwareSystem(el.System, "")
		}

		c := system.ContainerWithName(el.Container)
		if c == nil {
			c, _ = system.AddContainer(el.Container, el.Description, el.Technology)
		} else {
			if c.Description == "" {
				c.Description = el.Description
			}
			if c.Technology == "" {
				c.Technology = el.Technology
			}
		}
		c.Tags.Add(el.Tags...)
		edges = append(edges, edge{source: c, uses: el.Uses})
	}

	for _, e := range edges {
		for _, u := range e.uses {
			destination := merge.Resolve(m, u.Destination, "")
			if destination == nil {
				logger.Debug("uses label target not found",
					zap.String("workspace", name),
					zap.String("container", e.source.Name),
					zap.String("destination", u.Destination))
				continue
			}
			if destination == model.Element(e.source) || m.HasEfferentRelationship(e.source, destination) {
				continue
			}
			if _, err := m.AddRelationship(e.source, destination, u.Description, ""); err != nil {
				logger.Warn("skipping uses label", zap.String("container", e.source.Name), zap.Error(err))
			}
		}
	}

	return &model.Document{
		Name:     name,
		Location: "docker://" + name,
		Model:    m,
	}
}

// DiscoverDocuments lists labelled containers and converts them into
// workspace documents.
func DiscoverDocuments(ctx context.Context, cli ContainerLister, logger *zap.Logger) ([]*model.Document, error) {
	containers, err := ListLabelledContainers(ctx, cli)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debug("listed labelled containers", zap.Int("count", len(containers)))
	}
	return BuildDocuments(containers, logger), nil
}
