package shortcode

// SetRandom swaps the code source so tests can force collisions
func (g *Generator) SetRandom(random func(length int) (string, error)) {
	g.random = random
}
