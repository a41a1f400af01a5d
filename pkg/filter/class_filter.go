// Package filter classifies JVM class names into coarse categories for heap reports.
package filter

import (
	"strings"
	"sync"
)

// ClassCategory represents the category of a class.
type ClassCategory int

const (
	// CategoryUnknown indicates the class category is unknown.
	CategoryUnknown ClassCategory = iota
	// CategoryPrimitive indicates primitive arrays such as byte[].
	CategoryPrimitive
	// CategoryJDK indicates classes shipped with the JDK.
	CategoryJDK
	// CategoryFramework indicates well-known library internals.
	CategoryFramework
	// CategoryApplication indicates everything else.
	CategoryApplication
	// CategoryBusiness indicates classes under a configured business package.
	CategoryBusiness
)

// AllCategories returns the known categories in display order.
func AllCategories() []ClassCategory {
	return []ClassCategory{
		CategoryPrimitive,
		CategoryJDK,
		CategoryFramework,
		CategoryApplication,
		CategoryBusiness,
		CategoryUnknown,
	}
}

// String returns the string representation of the category.
func (c ClassCategory) String() string {
	switch c {
	case CategoryPrimitive:
		return "primitive"
	case CategoryJDK:
		return "jdk"
	case CategoryFramework:
		return "framework"
	case CategoryApplication:
		return "application"
	case CategoryBusiness:
		return "business"
	default:
		return "unknown"
	}
}

// descriptor codes used by class histograms for primitive array elements.
var primitiveDescriptors = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
}

// NormalizeClassName turns JVM descriptors into source form:
// "[B" becomes "byte[]" and "[[Ljava.lang.String;" becomes "java.lang.String[][]".
// Names that are not descriptors are returned unchanged.
func NormalizeClassName(name string) string {
	dims := 0
	for dims < len(name) && name[dims] == '[' {
		dims++
	}
	if dims == 0 || dims == len(name) {
		return name
	}

	elem := name[dims:]
	switch {
	case len(elem) == 1 && primitiveDescriptors[elem[0]] != "":
		elem = primitiveDescriptors[elem[0]]
	case strings.HasPrefix(elem, "L") && strings.HasSuffix(elem, ";"):
		elem = elem[1 : len(elem)-1]
	default:
		return name
	}
	return elem + strings.Repeat("[]", dims)
}

// ClassFilter classifies class names. It is safe for concurrent use.
type ClassFilter struct {
	mu sync.RWMutex

	jdkPrefixes       []string
	frameworkPrefixes []string
	businessPrefixes  []string

	categoryCache     map[string]ClassCategory
	categoryCacheSize int
}

// NewClassFilter creates a new ClassFilter with default rules.
func NewClassFilter() *ClassFilter {
	return &ClassFilter{
		jdkPrefixes: []string{
			"java.",
			"javax.",
			"jdk.",
			"sun.",
			"com.sun.",
		},
		frameworkPrefixes: []string{
			"org.springframework.",
			"io.netty.",
			"com.google.common.",
			"com.fasterxml.jackson.",
			"ch.qos.logback.",
			"org.slf4j.",
			"org.apache.",
			"net.bytebuddy.",
			"io.opentelemetry.",
			"kotlin.",
			"scala.",
		},
		categoryCache:     make(map[string]ClassCategory),
		categoryCacheSize: 10000,
	}
}

// Classify returns the category of a class. Descriptor names are normalized first.
func (f *ClassFilter) Classify(className string) ClassCategory {
	if className == "" {
		return CategoryUnknown
	}

	f.mu.RLock()
	if cat, ok := f.categoryCache[className]; ok {
		f.mu.RUnlock()
		return cat
	}
	f.mu.RUnlock()

	cat := f.classifyUncached(className)

	f.mu.Lock()
	if len(f.categoryCache) < f.categoryCacheSize {
		f.categoryCache[className] = cat
	}
	f.mu.Unlock()

	return cat
}

func (f *ClassFilter) classifyUncached(className string) ClassCategory {
	name := NormalizeClassName(className)

	elem := strings.TrimRight(name, "[]")
	if elem != name {
		if _, ok := primitiveNames[elem]; ok {
			return CategoryPrimitive
		}
	}
	// Hidden classes and JVM internals such as "<constMethodKlass>".
	if strings.HasPrefix(elem, "<") {
		return CategoryJDK
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, prefix := range f.businessPrefixes {
		if strings.HasPrefix(elem, prefix) {
			return CategoryBusiness
		}
	}
	for _, prefix := range f.jdkPrefixes {
		if strings.HasPrefix(elem, prefix) {
			return CategoryJDK
		}
	}
	for _, prefix := range f.frameworkPrefixes {
		if strings.HasPrefix(elem, prefix) {
			return CategoryFramework
		}
	}
	return CategoryApplication
}

var primitiveNames = func() map[string]struct{} {
	m := make(map[string]struct{}, len(primitiveDescriptors))
	for _, n := range primitiveDescriptors {
		m[n] = struct{}{}
	}
	return m
}()

// AddBusinessPrefix adds a business package prefix. Business prefixes win over
// every other rule, so a JDK-looking package can still be claimed.
func (f *ClassFilter) AddBusinessPrefix(prefix string) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.businessPrefixes {
		if p == prefix {
			return
		}
	}
	f.businessPrefixes = append(f.businessPrefixes, prefix)
	f.categoryCache = make(map[string]ClassCategory)
}

// AddBusinessPrefixes adds multiple business package prefixes.
func (f *ClassFilter) AddBusinessPrefixes(prefixes []string) {
	for _, prefix := range prefixes {
		f.AddBusinessPrefix(prefix)
	}
}
