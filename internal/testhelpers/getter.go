package testhelpers

import "context"

// StaticGetter implements client.Getter with a canned body or error and records the last request.
type StaticGetter struct {
	Body []byte
	Err  error

	Calls     int
	LastPath  string
	LastQuery map[string]string
}

// Get implements client.Getter.
func (g *StaticGetter) Get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	g.Calls++
	g.LastPath = path
	g.LastQuery = query
	if g.Err != nil {
		return nil, g.Err
	}
	return g.Body, nil
}
