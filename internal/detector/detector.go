package detector

import "strings"

// Rule 关键字集合 -> 术语体系
type Rule struct {
	SystemKey string
	Keywords  []string
}

// Detector 按文件名识别术语体系：不区分大小写的子串匹配，规则按顺序匹配，先命中者生效
// 新体系只能追加在末尾，避免遮蔽已有规则
type Detector struct {
	rules []Rule
}

// Default returns the detector for the reference systems.
func Default() *Detector {
	return New(
		Rule{SystemKey: "ayurveda", Keywords: []string{"ayurveda", "ayurvedic"}},
		Rule{SystemKey: "siddha", Keywords: []string{"siddha"}},
		Rule{SystemKey: "unani", Keywords: []string{"unani"}},
	)
}

func New(rules ...Rule) *Detector {
	d := &Detector{}
	for _, r := range rules {
		d.Append(r.SystemKey, r.Keywords...)
	}
	return d
}

// Append adds a rule after every existing rule.
func (d *Detector) Append(systemKey string, keywords ...string) {
	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kws = append(kws, k)
		}
	}
	if len(kws) == 0 {
		return
	}
	d.rules = append(d.rules, Rule{SystemKey: strings.ToLower(systemKey), Keywords: kws})
}

// Detect returns the system key for filename, or ok=false when no keyword matches.
func (d *Detector) Detect(filename string) (string, bool) {
	name := strings.ToLower(filename)
	for _, r := range d.rules {
		for _, k := range r.Keywords {
			if strings.Contains(name, k) {
				return r.SystemKey, true
			}
		}
	}
	return "", false
}

// Clone copies the rule list.
func (d *Detector) Clone() *Detector {
	c := &Detector{rules: make([]Rule, len(d.rules))}
	for i, r := range d.rules {
		c.rules[i] = Rule{SystemKey: r.SystemKey, Keywords: append([]string(nil), r.Keywords...)}
	}
	return c
}
