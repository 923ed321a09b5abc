package typechecker

import (
	"fmt"
	"strings"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/typesystem"
)

func (c *Checker) checkTry(try *ast.TryExpression) typesystem.Type {
	outerSink := c.throwSink
	sink := NewErrorSet()
	c.throwSink = sink
	successType := c.checkExpression(try.Expression)
	c.throwSink = outerSink

	if !try.HasCatch {
		c.propagateErrors(sink, try.TrySpan)
		return successType
	}

	if try.CatchFallback != nil {
		fallbackType := c.checkExpression(try.CatchFallback)
		unified, ok := typesystem.Unify(successType, fallbackType)
		if !ok {
			c.errorf(try.CatchFallback.Span(), "catch fallback: expected %s, found %s",
				successType, fallbackType)
			return successType
		}
		return unified
	}

	return c.checkCatchArms(try, successType, sink)
}

// checkCatchArms checks `try e catch name <arms> end`. Arms matching a
// specific variant remove it from the propagated union; a wildcard catches
// the rest; unmatched variants re-propagate.
func (c *Checker) checkCatchArms(try *ast.TryExpression, successType typesystem.Type, thrown *ErrorSet) typesystem.Type {
	remaining := thrown.Clone()
	bindingType := c.catchBindingType(thrown)

	c.pushScope()
	if try.CatchBinding != "" {
		c.bind(try.CatchBinding, bindingType)
	}

	resultType := successType
	sawWildcard := false
	for i := range try.CatchArms {
		arm := &try.CatchArms[i]
		if sawWildcard {
			c.warnf(arm.ArmSpan, "match arm is unreachable")
		}

		switch arm.Pattern.Kind {
		case ast.PatternType:
			errName, variantName, dotted := flattenTypeName(arm.Pattern.Type)
			if !dotted {
				c.errorf(arm.Pattern.PatSpan, "catch arms match error variants, e.g. `case is %s.Variant`", errName)
				c.checkExpression(arm.Body)
				continue
			}
			variantType := c.resolveErrorVariantType(errName, variantName, arm.Pattern.PatSpan)
			if !thrown.Contains(errName, variantName) && !thrown.IsEmpty() {
				c.warnf(arm.Pattern.PatSpan, "pattern `%s.%s` is unreachable", errName, variantName)
			} else if !remaining.Contains(errName, variantName) && thrown.Contains(errName, variantName) {
				c.warnf(arm.Pattern.PatSpan, "pattern `%s.%s` is unreachable", errName, variantName)
			}
			remaining.Remove(errName, variantName)

			// The binding is narrowed to the matched variant inside the arm.
			c.pushScope()
			if try.CatchBinding != "" {
				c.bind(try.CatchBinding, variantType)
			}
			resultType = c.unifyArmResult(resultType, arm)
			c.popScope()
		case ast.PatternWildcard:
			sawWildcard = true
			remaining = NewErrorSet()
			resultType = c.unifyArmResult(resultType, arm)
		default:
			c.errorf(arm.Pattern.PatSpan, "catch arms match error variants with `is` patterns or `_`")
			c.checkExpression(arm.Body)
		}
	}
	c.popScope()

	c.propagateErrors(remaining, try.TrySpan)
	return resultType
}

func (c *Checker) catchBindingType(thrown *ErrorSet) typesystem.Type {
	names := map[string]bool{}
	for _, item := range thrown.Items() {
		names[item[0]] = true
	}
	if len(names) == 1 {
		for name := range names {
			return typesystem.Error{Name: name}
		}
	}
	return typesystem.Unknown{}
}

func (c *Checker) unifyArmResult(resultType typesystem.Type, arm *ast.MatchArm) typesystem.Type {
	bodyType := c.checkExpression(arm.Body)
	unified, ok := typesystem.Unify(resultType, bodyType)
	if !ok {
		c.errorf(arm.Body.Span(), "match arms must produce one type: expected %s, found %s",
			resultType, bodyType)
		return resultType
	}
	return unified
}

// propagateErrors verifies the un-caught union is covered by the enclosing
// function's declared error set.
func (c *Checker) propagateErrors(remaining *ErrorSet, span ast.SourceSpan) {
	if remaining.IsEmpty() {
		return
	}
	if c.throwSink != nil {
		c.throwSink.Union(remaining)
		return
	}
	if c.fn == nil {
		c.errorf(span, "cannot propagate {%s} at module top level; add a catch", remaining)
		return
	}
	if !remaining.Subset(c.fn.errors) {
		c.errorf(span, "function '%s' does not declare {%s} in its error set", c.fn.name, remaining)
	}
}

func (c *Checker) checkMatch(match *ast.MatchExpression) typesystem.Type {
	scrutineeType := c.checkExpression(match.Scrutinee)

	var resultType typesystem.Type = typesystem.Unknown{}
	seen := map[string]ast.SourceSpan{}
	sawWildcard := false

	for i := range match.Arms {
		arm := &match.Arms[i]
		if sawWildcard {
			c.warnf(arm.ArmSpan, "match arm is unreachable")
		}

		switch arm.Pattern.Kind {
		case ast.PatternWildcard:
			sawWildcard = true
		case ast.PatternConstant:
			key, display, ok := c.checkConstantPattern(arm.Pattern.Constant, scrutineeType)
			if ok {
				if _, dup := seen[key]; dup {
					c.warnf(arm.Pattern.PatSpan, "pattern `%s` is unreachable", display)
				} else {
					seen[key] = arm.Pattern.PatSpan
				}
			}
		case ast.PatternType:
			c.checkTypePattern(&arm.Pattern, scrutineeType)
		}
		resultType = c.unifyArmResult(resultType, arm)
	}

	if !sawWildcard {
		c.checkExhaustiveness(match, scrutineeType, seen)
	}
	return resultType
}

// checkConstantPattern types a constant arm pattern and returns a
// deduplication key plus its display form.
func (c *Checker) checkConstantPattern(constant ast.Expression, scrutineeType typesystem.Type) (string, string, bool) {
	patternType := c.checkExpression(constant)
	if !typesystem.IsUnknown(scrutineeType) && !typesystem.AssignableTo(patternType, scrutineeType) {
		c.errorf(constant.Span(), "match pattern: expected %s, found %s", scrutineeType, patternType)
		return "", "", false
	}

	switch e := constant.(type) {
	case *ast.Literal:
		display := renderLiteral(e)
		return display, display, true
	case *ast.MemberExpression:
		if info, ok := c.info.Members[e]; ok && info.Kind == MemberEnumVariant {
			display := info.EnumName + "." + info.VariantName
			return display, display, true
		}
		c.errorf(constant.Span(), "match patterns must be constants")
		return "", "", false
	default:
		c.errorf(constant.Span(), "match patterns must be constants")
		return "", "", false
	}
}

func renderLiteral(literal *ast.Literal) string {
	switch literal.Kind {
	case ast.LiteralInt:
		return fmt.Sprintf("%d", literal.Int)
	case ast.LiteralFloat:
		return fmt.Sprintf("%g", literal.Float)
	case ast.LiteralString:
		return fmt.Sprintf("%q", literal.Str)
	case ast.LiteralBool:
		return fmt.Sprintf("%t", literal.Bool)
	default:
		return "nil"
	}
}

func (c *Checker) checkTypePattern(pattern *ast.MatchPattern, scrutineeType typesystem.Type) {
	if errName, variantName, dotted := flattenTypeName(pattern.Type); dotted {
		c.resolveErrorVariantType(errName, variantName, pattern.PatSpan)
		return
	}
	c.resolveType(pattern.Type, nil)
	if _, isErr := scrutineeType.(typesystem.Error); !isErr && !typesystem.IsUnknown(scrutineeType) {
		if _, isOpt := scrutineeType.(typesystem.Optional); !isOpt {
			c.errorf(pattern.PatSpan, "type patterns require an error or optional scrutinee, found %s", scrutineeType)
		}
	}
}

// checkExhaustiveness enforces coverage when no wildcard arm is present:
// Bool needs both literals, enums need every variant, everything else
// needs the wildcard.
func (c *Checker) checkExhaustiveness(match *ast.MatchExpression, scrutineeType typesystem.Type, seen map[string]ast.SourceSpan) {
	switch st := scrutineeType.(type) {
	case typesystem.Primitive:
		if st.Name == "Bool" {
			var missing []string
			if _, ok := seen["true"]; !ok {
				missing = append(missing, "`true`")
			}
			if _, ok := seen["false"]; !ok {
				missing = append(missing, "`false`")
			}
			if len(missing) > 0 {
				c.errorf(match.MatchSpan, "match expression is not exhaustive: missing %s",
					strings.Join(missing, ", "))
			}
			return
		}
		c.errorf(match.MatchSpan, "match expression is not exhaustive: add a wildcard arm `case _`")
	case typesystem.Enum:
		decl, ok := c.enums[st.Name]
		if !ok {
			return
		}
		var missing []string
		for _, variant := range decl.Variants {
			if _, ok := seen[st.Name+"."+variant]; !ok {
				missing = append(missing, st.Name+"."+variant)
			}
		}
		if len(missing) > 0 {
			c.errorf(match.MatchSpan, "match expression is not exhaustive: missing %s",
				strings.Join(missing, ", "))
		}
	case typesystem.Unknown:
	default:
		c.errorf(match.MatchSpan, "match expression is not exhaustive: add a wildcard arm `case _`")
	}
}
