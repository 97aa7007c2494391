// internal/rules/emit.go
package rules

import (
	"io"
	"strconv"
	"strings"
)

// droolsHeader opens every generated Drools file.
const droolsHeader = "package loanrules\n" +
	"import org.folio.circulation.loanrules.*\n" +
	"global Match match\n" +
	"\n"

// Drools renders the rule set as Drools source.
func (rs *RuleSet) Drools() string {
	var sb strings.Builder
	sb.WriteString(droolsHeader)
	for i := range rs.Rules {
		writeRule(&sb, &rs.Rules[i])
	}
	return sb.String()
}

// WriteDrools writes the Drools source to w.
func (rs *RuleSet) WriteDrools(w io.Writer) error {
	_, err := io.WriteString(w, rs.Drools())
	return err
}

// Example output:
//
//	rule "line 3"
//	  salience 200000003
//	  when
//	    PatronGroup(id == "visitor")
//	    ItemType(id in ("book", "dvd"))
//	  then
//	    match.loanPolicyId = "in-house";
//	    match.lineNumber = 3;
//	    drools.halt();
//	end
func writeRule(sb *strings.Builder, r *GeneratedRule) {
	sb.WriteString("rule ")
	sb.WriteString(strconv.Quote(r.Name))
	sb.WriteString("\n  salience ")
	sb.WriteString(strconv.Itoa(r.Salience))
	sb.WriteString("\n  when\n")
	for _, group := range r.When {
		for _, cond := range group.Conditions {
			sb.WriteString("    ")
			sb.WriteString(cond.Drools())
			sb.WriteString("\n")
		}
	}
	sb.WriteString("  then\n")
	sb.WriteString("    match.loanPolicyId = ")
	sb.WriteString(strconv.Quote(r.PolicyID))
	sb.WriteString(";\n")
	sb.WriteString("    match.lineNumber = ")
	sb.WriteString(strconv.Itoa(r.Line))
	sb.WriteString(";\n")
	sb.WriteString("    drools.halt();\n")
	sb.WriteString("end\n\n")
}
