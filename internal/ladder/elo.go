// Package ladder holds the pure rating and ranking rules. Nothing in here
// touches the database or the clock; every function is reproducible from its
// arguments alone.
package ladder

import "math"

const deviation = 400

// ExpectedScore returns the probability in (0,1) that a player rated ratingA
// beats a player rated ratingB under the Elo model.
func ExpectedScore(ratingA, ratingB int) float64 {
	return 1 / (1 + math.Pow(10, float64(ratingB-ratingA)/deviation))
}

// Delta is the rating adjustment for the winner, rounded to the nearest
// integer. The loser loses the same amount. There is no floor; ratings may
// go arbitrarily low.
func Delta(k int, expectedWinner float64) int {
	return int(math.Round(float64(k) * (1 - expectedWinner)))
}
