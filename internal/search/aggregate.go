package search

import (
	"sort"

	"resume-search-go/internal/constants"
	"resume-search-go/internal/types"
)

// weightFor 返回指定片段的权重
func weightFor(weights types.SectionWeights, section string) float64 {
	switch section {
	case constants.SectionSkills:
		return weights.Skills
	case constants.SectionEducation:
		return weights.Education
	case constants.SectionProjects:
		return weights.Projects
	case constants.SectionExperience:
		return weights.Experience
	default:
		return 0
	}
}

// DefaultWeights 返回默认的片段权重
func DefaultWeights() types.SectionWeights {
	return types.SectionWeights{
		Skills:     constants.DefaultWeightSkills,
		Education:  constants.DefaultWeightEducation,
		Projects:   constants.DefaultWeightProjects,
		Experience: constants.DefaultWeightExperience,
	}
}

// Aggregate 按候选人聚合各片段命中并加权排序。
// 每个片段只保留该候选人分数最高的命中作为证据，
// contribution = score * weight / 100，未命中的片段贡献恒为0。
// 排序: totalScore降序，相同时按邮箱升序；结果截断到limit。
func Aggregate(hitsBySection map[string][]types.SectionHit, weights types.SectionWeights, limit int) []types.RankedCandidate {
	if limit <= 0 {
		limit = constants.DefaultResultLimit
	}

	// 先选出每个候选人每个片段分数最高的命中
	bestHits := make(map[string]map[string]types.SectionHit)
	for _, section := range constants.Sections {
		for _, hit := range hitsBySection[section] {
			if hit.CandidateEmail == "" {
				continue
			}
			sections, ok := bestHits[hit.CandidateEmail]
			if !ok {
				sections = make(map[string]types.SectionHit)
				bestHits[hit.CandidateEmail] = sections
			}
			if existing, seen := sections[section]; !seen || hit.Score > existing.Score {
				sections[section] = hit
			}
		}
	}

	// 再按固定片段顺序累加加权贡献，保证求和顺序确定
	ranked := make([]types.RankedCandidate, 0, len(bestHits))
	for email, sections := range bestHits {
		candidate := types.RankedCandidate{
			CandidateEmail: email,
			Sections:       make(map[string]types.SectionEvidence, len(sections)),
		}
		for _, section := range constants.Sections {
			hit, ok := sections[section]
			if !ok {
				continue
			}
			contribution := hit.Score * weightFor(weights, section) / 100
			candidate.Sections[section] = types.SectionEvidence{
				Score:        hit.Score,
				Contribution: contribution,
				Text:         hit.Text,
			}
			candidate.TotalScore += contribution
		}
		ranked = append(ranked, candidate)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		return ranked[i].CandidateEmail < ranked[j].CandidateEmail
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
