// compose.go reads the architecture description of a Docker Compose file
// without a running daemon.
//
// Each service is treated like the container Compose would start for it:
// its labels are read with ParseLabels, so the same archmerge.* keys work
// in both places. Two Compose conventions supply defaults:
//   - the project name (top-level `name`, else the file's directory) is the
//     default workspace and software system
//   - every depends_on entry becomes a uses entry of the service
package docker

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/archmerge/internal/model"
)

// composeFile is the subset of a Compose file that describes architecture.
type composeFile struct {
	Name     string                    `yaml:"name"`
	Services map[string]composeService `yaml:"services"`
}

// composeService is one service definition. Labels and depends_on each
// accept the list form and the map form Compose allows.
type composeService struct {
	Image         string      `yaml:"image"`
	ContainerName string      `yaml:"container_name"`
	Labels        interface{} `yaml:"labels"`
	DependsOn     interface{} `yaml:"depends_on"`
}

// ComposeDocuments converts the Compose file at location into workspace
// documents, one per workspace named by the services' labels.
//
// Returns an error if the file is not valid YAML or defines no services.
func ComposeDocuments(data []byte, location string, logger *zap.Logger) ([]*model.Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var file composeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse compose file %s: %w", location, err)
	}
	if len(file.Services) == 0 {
		return nil, fmt.Errorf("compose file %s defines no services", location)
	}

	project := firstNonEmpty(file.Name, path.Base(path.Dir(strings.ReplaceAll(location, "\\", "/"))))

	services := make([]string, 0, len(file.Services))
	for name := range file.Services {
		services = append(services, name)
	}
	sort.Strings(services)

	// depends_on refers to service names; relationships need the
	// architecture container name, which a label may override.
	labels := make(map[string]map[string]string, len(services))
	containerNames := make(map[string]string, len(services))
	for _, name := range services {
		l := stringMap(file.Services[name].Labels)
		l[composeServiceLabel] = name
		if strings.TrimSpace(l[LabelSystem]) == "" {
			l[LabelSystem] = project
		}
		if strings.TrimSpace(l[LabelWorkspace]) == "" {
			l[LabelWorkspace] = project
		}
		labels[name] = l
		containerNames[name] = firstNonEmpty(l[LabelContainer], name)
	}

	infos := make([]ContainerInfo, 0, len(services))
	for _, name := range services {
		svc := file.Services[name]
		l := labels[name]

		var uses []string
		if v := strings.TrimSpace(l[LabelUses]); v != "" {
			uses = append(uses, v)
		}
		for _, dep := range stringList(svc.DependsOn) {
			target, ok := containerNames[dep]
			if !ok {
				logger.Debug("depends_on names an unknown service",
					zap.String("location", location),
					zap.String("service", name),
					zap.String("dependency", dep))
				continue
			}
			uses = append(uses, target)
		}
		if len(uses) > 0 {
			l[LabelUses] = strings.Join(uses, ",")
		}

		infos = append(infos, ContainerInfo{
			ContainerName: firstNonEmpty(svc.ContainerName, name),
			ServiceName:   name,
			Image:         svc.Image,
			Labels:        l,
		})
	}

	docs := BuildDocuments(infos, logger)
	for _, doc := range docs {
		doc.Location = location
	}
	return docs, nil
}

// stringMap reads a Compose labels value: a map of scalars or a list of
// "key=value" strings.
func stringMap(v interface{}) map[string]string {
	out := make(map[string]string)
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if val != nil {
				out[k] = fmt.Sprint(val)
			}
		}
	case []interface{}:
		for _, item := range t {
			key, value, _ := strings.Cut(fmt.Sprint(item), "=")
			out[strings.TrimSpace(key)] = value
		}
	}
	return out
}

// stringList reads a Compose depends_on value: a list of service names or
// a map keyed by service name. The result is sorted.
func stringList(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
	case map[string]interface{}:
		for k := range t {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
