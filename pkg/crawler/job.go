package crawler

// Job is one unit of crawl work. Jobs are immutable and consumed exactly once.
type Job struct {
	URL     string
	Depth   int // Remaining hops; 0 means the page is never visited
	Session *Session
}

// Child derives a job for a link found on j's page
func (j Job) Child(rawURL string) Job {
	return Job{URL: rawURL, Depth: j.Depth - 1, Session: j.Session}
}
