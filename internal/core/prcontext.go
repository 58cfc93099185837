package core

// ChangedFile describes one file touched by a pull request, as reported by
// the source-control API.
type ChangedFile struct {
	Path      string
	Patch     string
	Additions int
	Deletions int
}

// Changes returns the total changed-line volume for the file.
func (f ChangedFile) Changes() int {
	return f.Additions + f.Deletions
}

// PRContext carries everything the review pipeline needs to know about a
// pull request. It is assembled from the GitHub API before the pipeline runs.
type PRContext struct {
	RepoFullName string
	Number       int
	Title        string
	Description  string
	Author       string
	HeadSHA      string
	ChangedFiles []ChangedFile
}
