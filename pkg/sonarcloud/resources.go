package sonarcloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/health"
	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
	"github.com/felixgeelhaar/eemetrics/pkg/logging"
)

// Project is a SonarCloud component of qualifier TRK.
type Project struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Visibility string `json:"visibility,omitempty"`
}

// Group is an organisation user group.
type Group struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	MembersCount int    `json:"membersCount,omitempty"`
	Default      bool   `json:"default,omitempty"`
}

// GetAll fetches every page of a GET endpoint and decodes each item as T.
func GetAll[T any](ctx context.Context, c *Client, path string, params url.Values, itemKey string) ([]T, error) {
	res, err := c.Get(ctx, path, params, itemKey)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, path)
	}

	out := make([]T, 0, len(res.Items))
	for i, raw := range res.Items {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decode %s item %d: %w", itemKey, i, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// Projects returns the names of all projects in org. An unknown
// organisation yields an empty list.
func (c *Client) Projects(ctx context.Context, org string) ([]string, error) {
	projects, err := GetAll[Project](ctx, c, "/components/search_projects", url.Values{"organization": {org}}, "components")
	if err != nil {
		if errors.Is(err, ErrNoOrganisation) {
			return []string{}, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	return names, nil
}

// Groups lists the user groups of org.
func (c *Client) Groups(ctx context.Context, org string) ([]Group, error) {
	return GetAll[Group](ctx, c, "/user_groups/search", url.Values{"organization": {org}}, "groups")
}

// CreateGroup creates a user group and returns its name. With dryRun set
// nothing is sent.
func (c *Client) CreateGroup(ctx context.Context, name, org string, dryRun bool) (string, error) {
	if dryRun {
		c.logger.Info("ENGEXPUTILS002", logging.Fields{"group": name, "organization": org})
		return name, nil
	}

	c.logger.Info("ENGEXPUTILS016", logging.Fields{"group": name, "organization": org})
	res, err := c.Post(ctx, "/user_groups/create", url.Values{
		"organization": {org},
		"name":         {name},
	})
	if err != nil {
		c.logger.Error("ENGEXPUTILS017", logging.Fields{"group": name, "error": err.Error()})
		return "", fmt.Errorf("%w: %s: %w", ErrGroupNotCreated, name, err)
	}

	var created struct {
		Group *Group `json:"group"`
	}
	if res.Success && len(res.Body) > 0 {
		if err := json.Unmarshal(res.Body, &created); err != nil {
			created.Group = nil
		}
	}
	if created.Group == nil || created.Group.Name == "" {
		c.logger.Error("ENGEXPUTILS017", logging.Fields{"group": name, "success": res.Success})
		return "", fmt.Errorf("%w: %s", ErrGroupNotCreated, name)
	}

	c.logger.Info("ENGEXPUTILS001", logging.Fields{"group": created.Group.Name, "response": res.Body})
	return created.Group.Name, nil
}

// MeasureKeys are the metrics requested by ProjectMeasures.
var MeasureKeys = []string{
	"coverage",
	"ncloc",
	"bugs",
	"code_smells",
	"duplicated_lines_density",
	"reliability_rating",
	"security_rating",
	"sqale_rating",
}

type measure struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
}

// ProjectMeasures reads the quality measures of a project. Measures the
// server omits stay nil.
func (c *Client) ProjectMeasures(ctx context.Context, projectKey string) (metrics.SonarcloudMeasures, error) {
	params := url.Values{"component": {projectKey}}
	for _, key := range MeasureKeys {
		params.Add("metricKeys", key)
	}

	res, err := c.Get(ctx, "/measures/component", params, "component")
	if err != nil {
		return metrics.SonarcloudMeasures{}, err
	}
	if !res.Success {
		return metrics.SonarcloudMeasures{}, fmt.Errorf("%w: measures for %s", ErrRequestFailed, projectKey)
	}

	var component struct {
		Measures []measure `json:"measures"`
	}
	if len(res.Body) > 0 {
		if err := json.Unmarshal(res.Body, &component); err != nil {
			return metrics.SonarcloudMeasures{}, fmt.Errorf("decode measures for %s: %w", projectKey, err)
		}
	}
	return toMeasures(component.Measures)
}

func toMeasures(list []measure) (metrics.SonarcloudMeasures, error) {
	out := metrics.SonarcloudMeasures{IsEnabled: true}
	for _, m := range list {
		var err error
		switch m.Metric {
		case "coverage":
			out.CodeCoverage, err = parseFloat(m.Value)
		case "duplicated_lines_density":
			out.DuplicatedLinesDensity, err = parseFloat(m.Value)
		case "ncloc":
			out.LinesOfCode, err = parseInt(m.Value)
		case "bugs":
			out.Bugs, err = parseInt(m.Value)
		case "code_smells":
			out.CodeSmells, err = parseInt(m.Value)
		case "reliability_rating":
			out.ReliabilityRating, err = parseRating(m.Value)
		case "security_rating":
			out.SecurityRating, err = parseRating(m.Value)
		case "sqale_rating":
			out.SqaleRating, err = parseRating(m.Value)
		}
		if err != nil {
			return metrics.SonarcloudMeasures{}, fmt.Errorf("measure %s: %w", m.Metric, err)
		}
	}
	return out, nil
}

func parseFloat(s string) (*float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseInt(s string) (*int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	i := int(f)
	return &i, nil
}

// parseRating converts SonarCloud's numeric ratings ("1.0".."5.0").
func parseRating(s string) (*health.Rating, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	r, err := health.RatingFromValue(int(f + 0.5))
	if err != nil {
		return nil, err
	}
	return &r, nil
}
