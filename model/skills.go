package model

// SkillNames lists every skill an agent can train, in canonical order.
var SkillNames = []string{
	"stealth",
	"lockpicking",
	"illusion",
	"combat",
	"archery",
	"alchemy",
	"herbalism",
	"persuasion",
	"intimidation",
	"survival",
	"navigation",
	"smithing",
	"arcana",
	"medicine",
	"athletics",
}

// ChosenSkillCount is how many distinct skills an agent commits to a quest.
const ChosenSkillCount = 3

var skillSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(SkillNames))
	for _, s := range SkillNames {
		m[s] = struct{}{}
	}
	return m
}()

// IsSkillName reports whether name is a known skill.
func IsSkillName(name string) bool {
	_, ok := skillSet[name]
	return ok
}
