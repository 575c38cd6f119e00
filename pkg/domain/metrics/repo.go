package metrics

// Repo is a GitHub repository snapshot.
type Repo struct {
	Timestamps    `bson:",inline"`
	GithubID      int64  `json:"github_id" bson:"github_id"`
	NodeID        string `json:"node_id" bson:"node_id"`
	Name          string `json:"name" bson:"name"`
	FullName      string `json:"full_name" bson:"full_name"`
	Owner         string `json:"owner" bson:"owner"`
	Visibility    string `json:"visibility" bson:"visibility"`
	Language      string `json:"language" bson:"language"`
	Size          int    `json:"size" bson:"size"`
	PushedAt      string `json:"pushed_at" bson:"pushed_at"`
	// Repository timestamps as reported by GitHub.
	RepoCreatedAt string `json:"created_at" bson:"created_at"`
	RepoUpdatedAt string `json:"updated_at" bson:"updated_at"`
	Archived      bool   `json:"archived" bson:"archived"`
	URL           string `json:"url" bson:"url"`
}

func (r *Repo) Collection() string { return CollectionRepos }
func (r *Repo) Key() string        { return r.FullName }

func (r *Repo) Validate() error {
	v := newValidator(CollectionRepos)
	if r.GithubID == 0 {
		v.fail("github_id", reasonRequired)
	}
	v.required("node_id", r.NodeID)
	v.required("name", r.Name)
	v.required("full_name", r.FullName)
	v.required("owner", r.Owner)
	v.required("visibility", r.Visibility)
	v.required("language", r.Language)
	v.nonNegative("size", float64(r.Size))
	v.required("pushed_at", r.PushedAt)
	v.required("created_at", r.RepoCreatedAt)
	v.required("updated_at", r.RepoUpdatedAt)
	v.required("url", r.URL)
	return v.err()
}

// Unallocated is the default for every hierarchy level.
const Unallocated = "Unallocated"

// Hierarchy places a repository in the organisation structure.
type Hierarchy struct {
	Timestamps     `bson:",inline"`
	Repo           string `json:"repo" bson:"repo"`
	Directorate    string `json:"directorate" bson:"directorate"`
	FunctionName   string `json:"function_name" bson:"function_name"`
	Subdirectorate string `json:"subdirectorate" bson:"subdirectorate"`
	Area           string `json:"area" bson:"area"`
	Service        string `json:"service" bson:"service"`
}

// NewHierarchy returns a hierarchy with every level Unallocated.
func NewHierarchy(repo string) *Hierarchy {
	return &Hierarchy{
		Repo:           repo,
		Directorate:    Unallocated,
		FunctionName:   Unallocated,
		Subdirectorate: Unallocated,
		Area:           Unallocated,
		Service:        Unallocated,
	}
}

func (h *Hierarchy) Collection() string { return CollectionHierarchy }
func (h *Hierarchy) Key() string        { return h.Repo }

func (h *Hierarchy) Validate() error {
	v := newValidator(CollectionHierarchy)
	v.required("repo", h.Repo)
	return v.err()
}

// Items returns the non-empty hierarchy levels, top down.
func (h *Hierarchy) Items() []string {
	var items []string
	for _, level := range []string{h.Directorate, h.FunctionName, h.Subdirectorate, h.Area, h.Service} {
		if level != "" {
			items = append(items, level)
		}
	}
	return items
}
