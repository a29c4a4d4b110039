package projection

import (
	"sort"
	"strings"

	"solis/internal/model"
	"solis/internal/permission"
)

type Department struct {
	Name    string       `json:"name"`
	Members []model.User `json:"members"`
}

// OrgChart groups active users by department in the fixed department order,
// most senior first. Departments without members are left out.
func OrgChart(users []model.User) []Department {
	byDept := make(map[string][]model.User)
	for _, u := range users {
		if !u.IsActive {
			continue
		}
		dept := u.Department
		if !permission.ValidDepartment(dept) {
			dept = model.DepartmentGeneral
		}
		byDept[dept] = append(byDept[dept], u)
	}

	chart := make([]Department, 0, len(byDept))
	for _, name := range permission.Departments {
		members := byDept[name]
		if len(members) == 0 {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool {
			ri, rj := permission.RoleRank(members[i].Role), permission.RoleRank(members[j].Role)
			if ri != rj {
				return ri < rj
			}
			return strings.ToLower(members[i].Name) < strings.ToLower(members[j].Name)
		})
		chart = append(chart, Department{Name: name, Members: members})
	}
	return chart
}
