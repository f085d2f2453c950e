package processor

import (
	"strings"

	"resume-search-go/internal/constants"
	"resume-search-go/internal/types"
)

// SynthesizeSections 将结构化画像合成为各片段的检索文本。
// 顺序保持画像中的原始顺序，不做排序；空片段对应空字符串
func SynthesizeSections(profile *types.CandidateProfile) map[string]string {
	return map[string]string{
		constants.SectionSkills:     SkillsToString(profile.Skills),
		constants.SectionEducation:  EducationToString(profile.Education),
		constants.SectionProjects:   ProjectsToString(profile.Projects),
		constants.SectionExperience: ExperienceToString(profile.Experience),
	}
}

// SkillsToString 将技能清单按类别顺序拼接为单行文本
func SkillsToString(skills types.SkillSet) string {
	var parts []string
	if len(skills.Technical) > 0 {
		parts = append(parts, strings.Join(skills.Technical, " "))
	}
	if len(skills.Soft) > 0 {
		parts = append(parts, strings.Join(skills.Soft, " "))
	}
	if len(skills.Languages) > 0 {
		parts = append(parts, strings.Join(skills.Languages, " "))
	}
	if len(skills.Tools) > 0 {
		parts = append(parts, strings.Join(skills.Tools, " "))
	}
	if len(skills.Other) > 0 {
		parts = append(parts, strings.Join(skills.Other, " "))
	}
	return strings.Join(parts, " ")
}

// EducationToString 拼接教育经历。
// 年份不参与检索文本，绩点以 "CGPA :{gpa}" 的形式展现
func EducationToString(education []types.Education) string {
	entries := make([]string, 0, len(education))
	for _, edu := range education {
		var parts []string
		if edu.Degree != "" {
			parts = append(parts, edu.Degree)
		}
		if edu.Institution != "" {
			parts = append(parts, edu.Institution)
		}
		if edu.GPA != "" {
			parts = append(parts, "CGPA :"+edu.GPA)
		}
		if len(parts) > 0 {
			entries = append(entries, strings.Join(parts, " "))
		}
	}
	return strings.Join(entries, " ")
}

// ProjectsToString 拼接项目经历
func ProjectsToString(projects []types.Project) string {
	entries := make([]string, 0, len(projects))
	for _, project := range projects {
		var parts []string
		if project.Title != "" {
			parts = append(parts, project.Title)
		}
		if project.Description != "" {
			parts = append(parts, project.Description)
		}
		if len(project.Technologies) > 0 {
			parts = append(parts, strings.Join(project.Technologies, " "))
		}
		if len(parts) > 0 {
			entries = append(entries, strings.Join(parts, " "))
		}
	}
	return strings.Join(entries, " ")
}

// ExperienceToString 拼接工作经历
func ExperienceToString(experience []types.Experience) string {
	entries := make([]string, 0, len(experience))
	for _, exp := range experience {
		var parts []string
		if exp.JobTitle != "" {
			parts = append(parts, exp.JobTitle)
		}
		if exp.Company != "" {
			parts = append(parts, exp.Company)
		}
		if exp.Duration != "" {
			parts = append(parts, exp.Duration)
		}
		if len(exp.Description) > 0 {
			parts = append(parts, strings.Join(exp.Description, " "))
		}
		if len(exp.Achievements) > 0 {
			parts = append(parts, strings.Join(exp.Achievements, " "))
		}
		if len(parts) > 0 {
			entries = append(entries, strings.Join(parts, " "))
		}
	}
	return strings.Join(entries, " ")
}
