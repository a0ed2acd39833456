// Package report turns incident and ticket state into guardian-facing
// message drafts and owns their draft -> sent lifecycle.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
)

// Generate renders the guardian message for a report type from the
// student's current state. Pure: identical inputs and a frozen now yield
// byte-identical output, and the student is never mutated. Guardian
// fields are interpolated verbatim.
func Generate(st model.Student, typ model.ReportType, now time.Time) string {
	switch typ {
	case model.ReportInjury:
		return generateInjury(st, now)
	case model.ReportBehavior:
		return generateBehavior(st, now)
	}
	return ""
}

func generateInjury(st model.Student, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", guardian(st))
	fmt.Fprintf(&b, "During today's program, %s had a head injury that our staff monitored closely.\n\n", st.Name())
	fmt.Fprintf(&b, "Witnessed by: %s\n", st.HeadInjury.Witness)
	if st.HeadInjury.WitnessDesc != "" {
		fmt.Fprintf(&b, "What happened: %s\n", st.HeadInjury.WitnessDesc)
	}

	logs := st.HeadInjury.Logs
	if len(logs) > 0 {
		latest := logs[len(logs)-1]
		fmt.Fprintf(&b, "\nMost recent assessment (%s check):\n", latest.Stage)
		observed := observedSymptoms(latest)
		if len(observed) == 0 {
			b.WriteString("  No symptoms observed.\n")
		} else {
			for _, s := range observed {
				fmt.Fprintf(&b, "  - %s\n", s)
			}
		}
	}
	fmt.Fprintf(&b, "\nCompleted assessments: %d of %d.\n", len(logs), len(model.Stages))
	fmt.Fprintf(&b, "\nPrepared %s.\nCajon Valley EDP Staff\n", now.Format("Jan 2, 2006 3:04 PM"))
	return b.String()
}

func generateBehavior(st model.Student, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", guardian(st))
	fmt.Fprintf(&b, "This note is to let you know about a behavior incident involving %s during today's program.\n\n", st.Name())
	fmt.Fprintf(&b, "Severity: %s\n", st.Behavior.Level.Label())
	if len(st.Behavior.Issues) == 0 {
		b.WriteString("Concerns noted: please speak with program staff for details.\n")
	} else {
		b.WriteString("Concerns noted:\n")
		for _, is := range st.Behavior.Issues {
			fmt.Fprintf(&b, "  - %s\n", is)
		}
	}
	if st.Behavior.Description != "" {
		fmt.Fprintf(&b, "Staff notes: %s\n", st.Behavior.Description)
	}
	fmt.Fprintf(&b, "\nPrepared %s.\nCajon Valley EDP Staff\n", now.Format("Jan 2, 2006 3:04 PM"))
	return b.String()
}

// observedSymptoms returns the symptoms explicitly marked true, sorted
// for stable output.
func observedSymptoms(l model.HeadInjuryLog) []string {
	var out []string
	for name, seen := range l.Symptoms {
		if seen {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func guardian(st model.Student) string {
	if st.GuardianName != "" {
		return st.GuardianName
	}
	return "Parent/Guardian"
}
