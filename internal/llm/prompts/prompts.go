// Package prompts builds the grading instructions sent to the model.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/korektor-app/korektor/internal/model"
)

// System is the directive sent as the system message with every
// grading request. The whole flow depends on the reply being a bare
// JSON array, so this is stated twice.
const System = "You are an exam-sheet grading assistant. " +
	"Respond with strictly a JSON array and nothing else: no prose, " +
	"no markdown fences, no explanations."

// keyJSON serializes an answer-key map as a JSON object with slots
// 1..count in numeric order. json.Marshal on the map itself would sort
// the keys lexicographically ("1", "10", "11", ... "2"), scrambling
// the question order the model sees.
func keyJSON(m map[int]string, count int) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i := 1; i <= count; i++ {
		if i > 1 {
			sb.WriteByte(',')
		}
		v, ok := m[i]
		if !ok {
			v = model.AbsentAnswer
		}
		val, _ := json.Marshal(v)
		fmt.Fprintf(&sb, `"%d":%s`, i, val)
	}
	sb.WriteByte('}')
	return sb.String()
}

// BuildGrading assembles the grading instruction for one request:
// both answer keys serialized as JSON plus the teacher's free-text
// scoring formula.
func BuildGrading(key model.AnswerKey, formula string) (string, error) {
	pgJSON := keyJSON(key.PG, model.PGCount)
	essayJSON := keyJSON(key.Essay, model.EssayCount)

	var sb strings.Builder
	sb.WriteString("Grade the attached answer-sheet photos. The sheets may contain work from several students; produce one record per student you detect.\n\n")
	sb.WriteString("MULTIPLE-CHOICE ANSWER KEY (question number to expected letter, \"" + model.AbsentAnswer + "\" means no key given):\n")
	sb.WriteString(pgJSON)
	sb.WriteString("\n\nESSAY ANSWER KEY (question number to expected summary, \"" + model.AbsentAnswer + "\" means no key given):\n")
	sb.WriteString(essayJSON)
	sb.WriteString("\n\nSCORING FORMULA (supplied by the teacher, may reference the aggregate counts below):\n")
	sb.WriteString(formula)
	sb.WriteString("\n\nINSTRUCTIONS:\n")
	sb.WriteString("- For each multiple-choice question, read the student's mark from the photo. When marks are ambiguous or smudged, pick the most strongly marked option, then compare it against the key.\n")
	sb.WriteString("- For each essay question, judge whether the student's answer is semantically equivalent to the key phrase. Do NOT require an exact text match.\n")
	sb.WriteString("- Count correct and wrong answers per category, then compute each student's final score with the scoring formula.\n")
	sb.WriteString("\nRespond ONLY with a JSON array, one object per student:\n")
	sb.WriteString(`[{"nama_siswa": "<name>", "pg_benar": <number>, "pg_salah": <number>, "essay_benar": <number>, "essay_salah": <number>, "nilai_akhir": <number>}]`)
	sb.WriteString("\n")

	return sb.String(), nil
}
