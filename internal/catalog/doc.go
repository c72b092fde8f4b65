// Package catalog holds the declarative output definitions of a
// publication run.
//
// A catalog is plain data loaded from YAML. Groups map to a destination
// (an Excel template or a CSV directory), outputs map to a sheet or file,
// and each output concatenates one or more recipes. A recipe is tagged by
// its Kind and is interpreted by the engine package:
//
//	groups:
//	  - name: kc63_tables
//	    collection: KC63
//	    workbook: templates/tables.xlsx
//	    outputs:
//	      - name: Table 2a
//	        write_type: excel_static
//	        write_cell: B11
//	        empty_cols: [D, G]
//	        contents:
//	          - name: coverage_region
//	            kind: crosstab
//	            rows: [Parent_Org_Code]
//	            columns: Col_Def
//	            part: ["1"]
//	            row_order: [Grand_total, A, D, B, E, F, G, H, S, J, K]
//	            column_order: [Women_resident, Coverage]
//	            row_subgroups:
//	              - {target: Parent_Org_Code, label: S, sources: [J, K]}
//	            include_row_labels: false
//
// Catalogs are validated when loaded; every problem is reported as a
// configuration error before any data is read.
package catalog
