// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"math/rand"

	"github.com/danielhkuo/safely-elect/models"
)

// pickWinner selects the winner from decrypted per-candidate counts.
//
// The abstention entry is reported in the results but can never win. A
// strict maximum wins outright; when several candidates share the top count
// the winner is drawn uniformly from the tied set and the result is flagged
// as a tie. rng is injected so the draw is reproducible under test.
func pickWinner(candidates []models.CandidateResult, rng *rand.Rand) (*models.CandidateResult, bool) {
	var top []int
	var max uint64
	haveVotes := false

	for i := range candidates {
		if candidates[i].CandidateID == models.AbstainCandidateID {
			continue
		}
		v := candidates[i].Votes
		switch {
		case !haveVotes || v > max:
			max = v
			top = top[:0]
			top = append(top, i)
			haveVotes = true
		case v == max:
			top = append(top, i)
		}
	}

	if !haveVotes || max == 0 {
		// Nobody (or only the abstention) received votes.
		return nil, false
	}

	if len(top) == 1 {
		return &candidates[top[0]], false
	}

	chosen := top[rng.Intn(len(top))]
	return &candidates[chosen], true
}
