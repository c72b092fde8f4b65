package config

// CollectionConfig holds the pre-processing lookups of one collection.
type CollectionConfig struct {
	// TSYears is the number of years of records loaded for the collection.
	TSYears int `yaml:"ts_years" validate:"gte=1"`

	RegionCodeUpdates map[string]string `yaml:"region_code_updates"`
	RegionNameUpdates map[string]string `yaml:"region_name_updates"`
	OrgNameUpdates    map[string]string `yaml:"org_name_updates"`

	// SmallLAMerges folds local authorities too small to publish into a
	// neighbour. Codes and names are matched case-insensitively.
	SmallLAMerges []LAMerge `yaml:"small_la_merges" validate:"dive"`

	// RegionOrder feeds the Parent_Org_Order sort column.
	RegionOrder map[string]int `yaml:"region_order"`

	// ApplyLAUpdates re-parents local authorities from the LA region
	// history file.
	ApplyLAUpdates bool `yaml:"apply_la_updates"`
	// DropLA2012 removes local authority rows for 2012-13, a year in which
	// they were not collected consistently.
	DropLA2012 bool `yaml:"drop_la_2012"`

	// FlagSets are named lists used by check_list_flag updates. Each set
	// maps a flag column to the codes flagged in it.
	FlagSets map[string]map[string][]string `yaml:"flag_sets"`
}

// LAMerge is one small local authority folded into another.
type LAMerge struct {
	Code    string `yaml:"code" validate:"required"`
	NewCode string `yaml:"new_code" validate:"required"`
	Name    string `yaml:"name" validate:"required"`
	NewName string `yaml:"new_name" validate:"required"`
}

// DefaultCollections returns the lookups used for the 2021-22 publication.
func DefaultCollections() map[string]CollectionConfig {
	return map[string]CollectionConfig{
		KC62: {
			TSYears: DefaultTSYears,
			RegionCodeUpdates: map[string]string{
				"Q30": "R1",
				"Q31": "R2",
				"Q32": "R3",
				"Q33": "R4",
				"Q34": "R5",
				"Q35": "R6",
				"Q36": "R7",
				"Q37": "R8",
				"Q38": "R8",
				"Q39": "R10",
				"R9":  "R8",
			},
			RegionNameUpdates: map[string]string{
				"South Central":    "South East",
				"South East Coast": "South East",
			},
			OrgNameUpdates: map[string]string{
				"Isle Of Wight": "Isle of Wight",
				"Wigan":         "South Lancashire",
				"Barking, Havering, Redbridge & Brentwood": "Outer North East London",
				"North & Eastern Devon":                    "North & East Devon",
				"Wirral and Chester":                       "Wirral & Chester",
				"Basingstoke":                              "North & Mid Hampshire",
			},
			RegionOrder: map[string]int{
				"R1": 1, "R2": 3, "R3": 2, "R4": 4, "R5": 5,
				"R6": 6, "R7": 7, "R8": 8, "R10": 9,
			},
			FlagSets: map[string]map[string][]string{
				"bsu_flagged": {
					"Flag4749screeningBSU": {"AGA", "DCB", "DGY", "DKL", "DNF", "DPT", "DSU", "DSW", "LED"},
				},
			},
		},
		KC63: {
			TSYears: DefaultTSYears,
			OrgNameUpdates: map[string]string{
				"CORNWALL": "Cornwall",
				"HACKNEY":  "Hackney",
			},
			SmallLAMerges: []LAMerge{
				{Code: "E09000001", NewCode: "E09000012", Name: "City of London", NewName: "Hackney"},
				{Code: "E06000053", NewCode: "E06000052", Name: "Isles of Scilly", NewName: "Cornwall"},
			},
			RegionOrder: map[string]int{
				"A": 1, "B": 3, "D": 2, "E": 4, "F": 5,
				"G": 6, "H": 7, "J": 8, "K": 9,
			},
			ApplyLAUpdates: true,
			DropLA2012:     true,
		},
	}
}
